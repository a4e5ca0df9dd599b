package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"
)

func newTestMemoryStore(t *testing.T, size int) (*MemoryStore, *time.Time) {
	t.Helper()
	s, err := NewMemoryStore(size)
	require.NoError(t, err)
	now := day1
	s.now = func() time.Time { return now }
	return s, &now
}

func TestMemoryStore_ExpiresEntries(t *testing.T) {
	s, now := newTestMemoryStore(t, 8)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), v)

	*now = now.Add(time.Minute)

	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestMemoryStore(t, 2)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))
	_, _, _ = s.Get(ctx, "a")
	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0))

	_, found, _ := s.Get(ctx, "b")
	assert.False(t, found)
	_, found, _ = s.Get(ctx, "a")
	assert.True(t, found)
}

func TestMemoryStore_ScanAndDel(t *testing.T) {
	s, now := newTestMemoryStore(t, 8)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "company_info:aa1", []byte("x"), 0))
	require.NoError(t, s.Set(ctx, "company_info:ab1", []byte("x"), 0))
	require.NoError(t, s.Set(ctx, "company_info:aa2", []byte("x"), time.Second))
	require.NoError(t, s.Set(ctx, "other:aa", []byte("x"), 0))
	*now = now.Add(2 * time.Second)

	keys, err := s.Scan(ctx, "company_info:aa*", 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"company_info:aa1"}, keys)

	n, err := s.Del(ctx, "company_info:aa1", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_BacksResultCache(t *testing.T) {
	s, _ := newTestMemoryStore(t, 16)
	c, err := New(config.CacheConfig{Enabled: true, Backend: config.CacheBackendMemory}, s, logger.NewNoOpLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Set(ctx, "Tesla", "web", []string{"a", "b"})
	require.NoError(t, err)

	var got []string
	found, err := c.Get(ctx, "Tesla", "web", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 keys", stats.UsedMemory)
	assert.Equal(t, int64(1), stats.ConnectedClients)
	assert.Positive(t, stats.TotalCommandsProcessed)

	cleared, err := c.ClearAll(ctx)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Zero(t, s.entries.Len())
}

func TestNewMemoryStore_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewMemoryStore(0)
	assert.ErrorIs(t, err, ErrCacheConfiguration)
}
