package cache

import (
	"context"
	"time"
)

// Memoize returns the cached value under key, or calls fetch and stores
// its result with ttl. The key is computed by the caller. Cache read
// failures count as a miss and write failures are only logged, so the
// returned error is always fetch's. hit reports whether fetch was skipped.
func Memoize[T any](ctx context.Context, c *ResultCache, key Key, ttl time.Duration, fetch func(context.Context) (T, error)) (value T, hit bool, err error) {
	var cached T
	found, gerr := c.GetKey(ctx, key, &cached)
	if gerr != nil {
		c.logger.Warn("cache read failed, treating as miss", map[string]interface{}{
			"key":       string(key),
			"errorCode": Kind(gerr),
			"error":     gerr,
		})
	}
	if found {
		return cached, true, nil
	}

	value, err = fetch(ctx)
	if err != nil {
		return value, false, err
	}

	if _, serr := c.SetKey(ctx, key, value, ttl); serr != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"key":       string(key),
			"errorCode": Kind(serr),
			"error":     serr,
		})
	}
	return value, false, nil
}
