// cmd/tools/cache-admin/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"company-intel/internal/bootstrap"
	"company-intel/internal/cache"
	"company-intel/internal/common/config"
	"company-intel/internal/common/database"
	"company-intel/internal/common/logger"
	"company-intel/internal/history"
)

// RunLookup loads a recorded pipeline run.
type RunLookup interface {
	Get(ctx context.Context, runID uuid.UUID) (*history.Run, error)
}

// admin holds what the subcommands operate on. runs is nil when query
// history is disabled.
type admin struct {
	cache *cache.ResultCache
	runs  RunLookup
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" {
		help(os.Stdout)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured("warn", "console", "stderr")

	var redisClient *database.RedisClient
	if cfg.Cache.Enabled && cfg.Cache.Backend != config.CacheBackendMemory {
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			fmt.Printf("Error connecting to redis: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		store, err = bootstrap.CacheStore(cfg.Cache, redisClient)
		if err != nil {
			fmt.Printf("Error building cache store: %v\n", err)
			os.Exit(1)
		}
	}
	rc, err := bootstrap.ResultCache(cfg.Cache, store, log)
	if err != nil {
		fmt.Printf("Error building cache: %v\n", err)
		os.Exit(1)
	}

	a := admin{cache: rc}
	if os.Args[1] == "run" && cfg.History.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			fmt.Printf("Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		a.runs = history.NewStore(pg, log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, a, os.Args[1:], os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// run executes one subcommand and writes its result to out. Store errors
// are returned unchanged.
func run(ctx context.Context, a admin, args []string, out io.Writer) error {
	if len(args) == 0 {
		help(out)
		return nil
	}
	rc := a.cache

	switch args[0] {
	case "health":
		if !rc.Enabled() {
			fmt.Fprintln(out, "Cache is disabled.")
			return nil
		}
		if !rc.HealthCheck(ctx) {
			return fmt.Errorf("cache is unreachable")
		}
		fmt.Fprintln(out, "Cache is healthy.")

	case "stats":
		stats, err := rc.Stats(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)

	case "invalidate":
		cmd := flag.NewFlagSet("invalidate", flag.ContinueOnError)
		cmd.SetOutput(out)
		key := cmd.String("key", "", "Logical cache key, usually the search query (required)")
		source := cmd.String("source", "", "Source tag: "+bootstrap.CacheTagEncyclopedia+" or "+bootstrap.CacheTagWeb+" (required)")
		if err := cmd.Parse(args[1:]); err != nil {
			return err
		}
		if *key == "" || *source == "" {
			cmd.Usage()
			return fmt.Errorf("key and source are required for invalidate")
		}
		removed, err := rc.Invalidate(ctx, *key, *source)
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintf(out, "Invalidated %s entry for %q\n", *source, *key)
		} else {
			fmt.Fprintf(out, "No %s entry for %q\n", *source, *key)
		}

	case "bulk-invalidate":
		cmd := flag.NewFlagSet("bulk-invalidate", flag.ContinueOnError)
		cmd.SetOutput(out)
		pattern := cmd.String("pattern", "", "Key prefix after company_info: (required)")
		if err := cmd.Parse(args[1:]); err != nil {
			return err
		}
		if *pattern == "" {
			cmd.Usage()
			return fmt.Errorf("pattern is required for bulk-invalidate")
		}
		n, err := rc.BulkInvalidate(ctx, *pattern)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Invalidated %d entries\n", n)

	case "clear":
		cmd := flag.NewFlagSet("clear", flag.ContinueOnError)
		cmd.SetOutput(out)
		yes := cmd.Bool("yes", false, "Confirm flushing the whole cache database")
		if err := cmd.Parse(args[1:]); err != nil {
			return err
		}
		if !*yes {
			return fmt.Errorf("refusing to clear the cache without -yes")
		}
		cleared, err := rc.ClearAll(ctx)
		if err != nil {
			return err
		}
		if cleared {
			fmt.Fprintln(out, "Cache cleared.")
		} else {
			fmt.Fprintln(out, "Cache is disabled, nothing cleared.")
		}

	case "run":
		cmd := flag.NewFlagSet("run", flag.ContinueOnError)
		cmd.SetOutput(out)
		id := cmd.String("id", "", "Run ID returned by the worker as runId (required)")
		if err := cmd.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			cmd.Usage()
			return fmt.Errorf("id is required for run")
		}
		runID, err := uuid.Parse(*id)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", *id, err)
		}
		if a.runs == nil {
			return fmt.Errorf("query history is disabled")
		}
		recorded, err := a.runs.Get(ctx, runID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recorded)

	case "help":
		help(out)

	default:
		help(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func help(out io.Writer) {
	fmt.Fprintln(out, "Usage: cache-admin <command> [flags]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  health                              Ping the cache store")
	fmt.Fprintln(out, "  stats                               Print store statistics")
	fmt.Fprintln(out, "  invalidate -key <q> -source <tag>   Remove one cached result")
	fmt.Fprintln(out, "  bulk-invalidate -pattern <prefix>   Remove every key under company_info:<prefix>")
	fmt.Fprintln(out, "  clear -yes                          Flush the cache database")
	fmt.Fprintln(out, "  run -id <uuid>                      Show a recorded pipeline run")
	fmt.Fprintln(out, "  help                                Show this help")
}
