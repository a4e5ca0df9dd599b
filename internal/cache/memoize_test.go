package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"
)

func TestMemoize_MissThenHit(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	key, err := c.Key("OpenAI headquarters", "Tavily")
	require.NoError(t, err)

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"San Francisco"}, nil
	}

	v, hit, err := Memoize(ctx, c, key, TTLLocation, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"San Francisco"}, v)
	assert.Equal(t, TTLLocation, mr.TTL(key.String()))

	v, hit, err = Memoize(ctx, c, key, TTLLocation, fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"San Francisco"}, v)
	assert.Equal(t, 1, calls)
}

func TestMemoize_FetchErrorIsNotCached(t *testing.T) {
	c, mr := newRedisCache(t)
	key, err := c.Key("OpenAI", "Tavily")
	require.NoError(t, err)

	boom := errors.New("upstream down")
	_, hit, err := Memoize(context.Background(), c, key, time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hit)
	assert.Empty(t, mr.Keys())
}

func TestMemoize_CacheFailuresFallBackToFetch(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	require.True(t, c.HealthCheck(ctx))
	key, err := c.Key("OpenAI", "Tavily")
	require.NoError(t, err)

	mr.SetError("LOADING Redis is loading the dataset in memory")

	v, hit, err := Memoize(ctx, c, key, time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", v)
}

func TestMemoize_CorruptEntryIsRefetched(t *testing.T) {
	c, mr := newRedisCache(t)
	key, err := c.Key("OpenAI", "Tavily")
	require.NoError(t, err)
	require.NoError(t, mr.Set(key.String(), "not json"))

	v, hit, err := Memoize(context.Background(), c, key, time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", v)

	stored, err := mr.Get(key.String())
	require.NoError(t, err)
	assert.Equal(t, `"fresh"`, stored)
}

func TestMemoize_DisabledCacheAlwaysFetches(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: false}, nil, logger.NewNoOpLogger())
	require.NoError(t, err)

	calls := 0
	for i := 0; i < 2; i++ {
		_, hit, err := Memoize(context.Background(), c, Key("company_info:x"), time.Minute, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, calls)
}
