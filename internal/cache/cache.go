// Package cache memoizes provider lookups in a shared key/value store
// with per-category expiry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"
)

const defaultScanPageSize = 100

// ResultCache derives deterministic keys, applies the TTL table and wraps
// a Store with typed errors. A disabled cache never touches its store.
type ResultCache struct {
	store        Store
	enabled      bool
	scanPageSize int64
	now          func() time.Time
	logger       logger.Logger
}

type Option func(*ResultCache)

// WithClock overrides the clock used for recency-bound keys.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		c.now = now
	}
}

func New(cfg config.CacheConfig, store Store, log logger.Logger, opts ...Option) (*ResultCache, error) {
	if cfg.Enabled && store == nil {
		return nil, newError(ErrCacheConfiguration, "new", errors.New("cache enabled without a store"))
	}
	if cfg.ScanPageSize < 0 {
		return nil, newError(ErrCacheConfiguration, "new", errors.New("scan_page_size must not be negative"))
	}

	pageSize := int64(cfg.ScanPageSize)
	if pageSize == 0 {
		pageSize = defaultScanPageSize
	}

	c := &ResultCache{
		store:        store,
		enabled:      cfg.Enabled,
		scanPageSize: pageSize,
		now:          time.Now,
		logger:       log.With(map[string]interface{}{"component": "result_cache"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Disabled returns a cache whose operations are all no-ops.
func Disabled(log logger.Logger) *ResultCache {
	c, _ := New(config.CacheConfig{Enabled: false}, nil, log)
	return c
}

func (c *ResultCache) Enabled() bool {
	return c.enabled
}

// Key derives the store key for (logical, source) at the current time.
func (c *ResultCache) Key(logical, source string) (Key, error) {
	return DeriveKey(logical, source, c.now())
}

// Get decodes the cached payload for (logical, source) into dest and
// reports whether an entry was found.
func (c *ResultCache) Get(ctx context.Context, logical, source string, dest interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	key, err := c.Key(logical, source)
	if err != nil {
		return false, err
	}
	return c.GetKey(ctx, key, dest)
}

func (c *ResultCache) GetKey(ctx context.Context, key Key, dest interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	raw, found, err := c.store.Get(ctx, string(key))
	if err != nil {
		return false, storeError("get", err)
	}
	if !found {
		c.logger.Debug("cache miss", map[string]interface{}{"key": string(key)})
		return false, nil
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, newError(ErrCacheSerialization, "deserialization", err)
	}
	c.logger.Debug("cache hit", map[string]interface{}{"key": string(key)})
	return true, nil
}

type setOptions struct {
	ttl      time.Duration
	category Category
}

type SetOption func(*setOptions)

// WithTTL sets an explicit expiry, overriding the category table.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

// WithCategory resolves the expiry from the TTL table.
func WithCategory(cat Category) SetOption {
	return func(o *setOptions) {
		o.category = cat
	}
}

// Set stores payload under (logical, source). Without options the general
// TTL applies.
func (c *ResultCache) Set(ctx context.Context, logical, source string, payload interface{}, opts ...SetOption) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	o := setOptions{category: CategoryGeneral}
	for _, opt := range opts {
		opt(&o)
	}
	ttl := o.ttl
	if ttl <= 0 {
		ttl = ResolveTTL(o.category)
	}

	key, err := c.Key(logical, source)
	if err != nil {
		return false, err
	}
	return c.SetKey(ctx, key, payload, ttl)
}

// SetKey stores payload under an already derived key. A non-positive ttl
// falls back to the general TTL.
func (c *ResultCache) SetKey(ctx context.Context, key Key, payload interface{}, ttl time.Duration) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	if ttl <= 0 {
		ttl = TTLDefault
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return false, newError(ErrCacheSerialization, "serialization", err)
	}

	if err := c.store.Set(ctx, string(key), data, ttl); err != nil {
		return false, storeError("set", err)
	}

	c.logger.Debug("cached entry", map[string]interface{}{
		"key": string(key),
		"ttl": ttl.String(),
	})
	return true, nil
}

// Invalidate removes the entry for (logical, source) and reports whether
// one existed.
func (c *ResultCache) Invalidate(ctx context.Context, logical, source string) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	key, err := c.Key(logical, source)
	if err != nil {
		return false, err
	}

	n, err := c.store.Del(ctx, string(key))
	if err != nil {
		return false, storeError("invalidate", err)
	}
	return n > 0, nil
}

// BulkInvalidate deletes every key matching company_info:<pattern>* and
// returns how many were removed.
func (c *ResultCache) BulkInvalidate(ctx context.Context, pattern string) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	keys, err := c.store.Scan(ctx, matchPattern(pattern), c.scanPageSize)
	if err != nil {
		return 0, storeError("bulk_invalidate", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.store.Del(ctx, keys...)
	if err != nil {
		return 0, storeError("bulk_invalidate", err)
	}

	c.logger.Info("bulk invalidated cache entries", map[string]interface{}{
		"pattern": pattern,
		"deleted": n,
	})
	return int(n), nil
}

// HealthCheck pings the store. Failures are logged, not returned.
func (c *ResultCache) HealthCheck(ctx context.Context) bool {
	if !c.enabled {
		return false
	}
	if err := c.store.Ping(ctx); err != nil {
		c.logger.Error("cache health check failed", map[string]interface{}{"error": err})
		return false
	}
	return true
}

// Stats is a summary of the store's server statistics.
type Stats struct {
	UsedMemory               string `json:"used_memory"`
	ConnectedClients         int64  `json:"connected_clients"`
	TotalConnectionsReceived int64  `json:"total_connections_received"`
	TotalCommandsProcessed   int64  `json:"total_commands_processed"`
}

func (c *ResultCache) Stats(ctx context.Context) (Stats, error) {
	if !c.enabled {
		return Stats{}, nil
	}

	info, err := c.store.Info(ctx)
	if err != nil {
		return Stats{}, storeError("get_stats", err)
	}

	stats := Stats{UsedMemory: "N/A"}
	if v, ok := info["used_memory_human"]; ok {
		stats.UsedMemory = v
	}
	stats.ConnectedClients = parseCount(info["connected_clients"])
	stats.TotalConnectionsReceived = parseCount(info["total_connections_received"])
	stats.TotalCommandsProcessed = parseCount(info["total_commands_processed"])
	return stats, nil
}

func (c *ResultCache) ClearAll(ctx context.Context) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	if err := c.store.FlushDB(ctx); err != nil {
		return false, storeError("clear_all", err)
	}
	c.logger.Warn("cache cleared", nil)
	return true, nil
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
