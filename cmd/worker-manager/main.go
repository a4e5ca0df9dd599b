// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"company-intel/internal/bootstrap"
	"company-intel/internal/cache"
	"company-intel/internal/common/camunda"
	"company-intel/internal/common/config"
	"company-intel/internal/common/database"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/observability"
	"company-intel/internal/history"
	"company-intel/internal/pipeline"

	acq "company-intel/internal/workers/company-intel/answer-company-query"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	if cfg.Cache.Enabled && cfg.Cache.Backend == config.CacheBackendRedis {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		store, err = bootstrap.CacheStore(cfg.Cache, redisClient)
		if err != nil {
			zapLog.Fatal("cache store setup failed", zap.Error(err))
		}
	}
	resultCache, err := bootstrap.ResultCache(cfg.Cache, store, log)
	if err != nil {
		zapLog.Fatal("result cache setup failed", zap.Error(err))
	}
	zapLog.Info("Result cache ready",
		zap.Bool("enabled", resultCache.Enabled()),
		zap.String("backend", cfg.Cache.Backend),
	)

	// --- Init PostgreSQL with retry ---
	opts := []pipeline.Option{pipeline.WithTracer(obs.Tracer())}
	if cfg.History.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		runs := history.NewStore(pg, log)
		if err := runs.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("query history schema setup failed", zap.Error(err))
		}
		opts = append(opts, pipeline.WithRecorder(runs))
		zapLog.Info("PostgreSQL connected successfully, query history enabled")
	}

	orchestrator := bootstrap.Pipeline(cfg, resultCache, log, opts...)

	// --- Register workers ---
	workers := camunda.NewWorkers(zeebe.Raw(), log)

	handler, err := acq.NewHandler(acq.HandlerOptions{
		AppConfig:     cfg,
		Pipeline:      orchestrator,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("failed to create answer-company-query handler", zap.Error(err))
	}
	workers.Start(acq.TaskType, config.GetWorkerConfig(cfg, acq.TaskType), handler.Handle)

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
			"cache":  resultCache.HealthCheck(r.Context()) || !resultCache.Enabled(),
		}
		code := http.StatusOK
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			status["status"] = "not ready"
			status["zeebe"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.App.MetricsAddr, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
