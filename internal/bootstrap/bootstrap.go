// Package bootstrap builds the pipeline and its cache from configuration.
package bootstrap

import (
	"fmt"

	"company-intel/internal/cache"
	"company-intel/internal/common/config"
	"company-intel/internal/common/database"
	"company-intel/internal/common/logger"
	"company-intel/internal/genai"
	"company-intel/internal/pipeline"
	"company-intel/internal/providers/tavily"
	"company-intel/internal/providers/wikipedia"
	"company-intel/internal/retrieval"
)

// Cache key source tags. Changing them orphans existing entries.
const (
	CacheTagEncyclopedia = "wiki"
	CacheTagWeb          = "tavily"
)

// CacheStore picks the store for cache.backend. redisClient is only needed
// for the redis backend.
func CacheStore(cfg config.CacheConfig, redisClient *database.RedisClient) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		return cache.NewMemoryStore(cfg.MemorySize)
	case config.CacheBackendRedis, "":
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend selected but no redis client configured")
		}
		return cache.NewRedisStore(redisClient.Client), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// ResultCache builds the result cache. A disabled cache never touches store.
func ResultCache(cfg config.CacheConfig, store cache.Store, log logger.Logger) (*cache.ResultCache, error) {
	if !cfg.Enabled {
		return cache.Disabled(log), nil
	}
	return cache.New(cfg, store, log)
}

// Pipeline wires the GenAI gateway, both evidence providers and the result
// cache into an orchestrator.
func Pipeline(cfg *config.Config, rc *cache.ResultCache, log logger.Logger, opts ...pipeline.Option) *pipeline.Orchestrator {
	ai := genai.NewClient(genai.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Timeout:    config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	}, log)

	wiki := wikipedia.NewClient(wikipedia.Config{
		BaseURL:   cfg.APIs.Encyclopedia.BaseURL,
		UserAgent: cfg.APIs.Encyclopedia.UserAgent,
		Timeout:   config.GetDuration(cfg.APIs.Encyclopedia.Timeout),
	}, log)

	web := tavily.NewClient(tavily.Config{
		BaseURL:    cfg.APIs.WebSearch.BaseURL,
		APIKey:     cfg.APIs.WebSearch.APIKey,
		MaxResults: cfg.APIs.WebSearch.MaxResults,
		Timeout:    config.GetDuration(cfg.APIs.WebSearch.Timeout),
	}, log)

	encyclopedia := retrieval.New(wikipedia.SourceName, CacheTagEncyclopedia, wiki, retrieval.EncyclopediaQuery, rc, log)
	webSearch := retrieval.New(tavily.SourceName, CacheTagWeb, web, retrieval.WebQuery, rc, log)

	all := append([]pipeline.Option{pipeline.WithTimeouts(pipeline.TimeoutsFromConfig(cfg.Pipeline))}, opts...)
	return pipeline.New(ai, ai, encyclopedia, webSearch, ai, log, all...)
}
