package main

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-intel/internal/cache"
	"company-intel/internal/common/config"
	"company-intel/internal/common/database"
	"company-intel/internal/common/logger"
	"company-intel/internal/history"
)

func newRedisCache(t *testing.T) (*cache.ResultCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rc, err := cache.New(config.CacheConfig{Enabled: true, Backend: config.CacheBackendRedis},
		cache.NewRedisStore(client), logger.NewTestLogger(t))
	require.NoError(t, err)
	return rc, mr
}

func TestRun_Health(t *testing.T) {
	rc, _ := newRedisCache(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), admin{cache: rc}, []string{"health"}, &out))
	assert.Equal(t, "Cache is healthy.\n", out.String())
}

func TestRun_HealthDisabled(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), admin{cache: cache.Disabled(logger.NewNoOpLogger())}, []string{"health"}, &out))
	assert.Equal(t, "Cache is disabled.\n", out.String())
}

func TestRun_InvalidateRemovesEntry(t *testing.T) {
	rc, _ := newRedisCache(t)
	ctx := context.Background()

	_, err := rc.Set(ctx, "OpenAI headquarters", "wiki", map[string]string{"a": "b"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(ctx, admin{cache: rc}, []string{"invalidate", "-key", "OpenAI headquarters", "-source", "wiki"}, &out))
	assert.Contains(t, out.String(), "Invalidated wiki entry")

	out.Reset()
	require.NoError(t, run(ctx, admin{cache: rc}, []string{"invalidate", "-key", "OpenAI headquarters", "-source", "wiki"}, &out))
	assert.Contains(t, out.String(), "No wiki entry")
}

func TestRun_InvalidateRequiresFlags(t *testing.T) {
	rc, _ := newRedisCache(t)
	var out bytes.Buffer

	err := run(context.Background(), admin{cache: rc}, []string{"invalidate", "-key", "x"}, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "key and source are required")
}

func TestRun_BulkInvalidate(t *testing.T) {
	rc, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("company_info:aaa1", "1"))
	require.NoError(t, mr.Set("company_info:aaa2", "2"))
	require.NoError(t, mr.Set("company_info:bbb1", "3"))

	var out bytes.Buffer
	require.NoError(t, run(ctx, admin{cache: rc}, []string{"bulk-invalidate", "-pattern", "aaa"}, &out))

	assert.Equal(t, "Invalidated 2 entries\n", out.String())
	assert.True(t, mr.Exists("company_info:bbb1"))
}

func TestRun_Stats(t *testing.T) {
	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)
	rc, err := cache.New(config.CacheConfig{Enabled: true, Backend: config.CacheBackendMemory}, store, logger.NewNoOpLogger())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), admin{cache: rc}, []string{"stats"}, &out))

	assert.Contains(t, out.String(), `"used_memory": "0 keys"`)
	assert.Contains(t, out.String(), `"connected_clients": 1`)
}

func TestRun_ClearNeedsConfirmation(t *testing.T) {
	rc, mr := newRedisCache(t)
	require.NoError(t, mr.Set("company_info:k", "v"))
	var out bytes.Buffer

	require.Error(t, run(context.Background(), admin{cache: rc}, []string{"clear"}, &out))
	assert.True(t, mr.Exists("company_info:k"))

	require.NoError(t, run(context.Background(), admin{cache: rc}, []string{"clear", "-yes"}, &out))
	assert.False(t, mr.Exists("company_info:k"))
	assert.Contains(t, out.String(), "Cache cleared.")
}

func TestRun_StoreErrorReturnedUnchanged(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	rc, err := cache.New(config.CacheConfig{Enabled: true}, cache.NewRedisStore(client), logger.NewNoOpLogger())
	require.NoError(t, err)
	mr.Close()

	err = run(context.Background(), admin{cache: rc}, []string{"bulk-invalidate", "-pattern", "x"}, &bytes.Buffer{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, cache.ErrCacheConnection))
	assert.Equal(t, cache.ErrCacheConnection.Error(), cache.Kind(err))
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer

	err := run(context.Background(), admin{cache: cache.Disabled(logger.NewNoOpLogger())}, []string{"explode"}, &out)

	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage: cache-admin")
}

var runColumns = []string{
	"run_id", "query", "query_type", "company", "needs_clarification", "retrieval_a", "retrieval_b",
	"verdict_confidence", "response_text", "confidence_score", "stages", "created_at",
}

const selectRunPattern = "SELECT run_id, query, query_type, company, needs_clarification, retrieval_a, retrieval_b"

func newHistory(t *testing.T) (*history.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return history.NewStore(database.NewPostgresFromDB(db), logger.NewNoOpLogger()), mock
}

func TestRun_ShowsRecordedRun(t *testing.T) {
	runs, mock := newHistory(t)
	id := uuid.New()
	created := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectRunPattern)).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(runColumns).AddRow(
			id.String(), "Where is OpenAI located?", "location", "OpenAI", false, "ok", "cached",
			0.85, "OpenAI is headquartered in San Francisco. (Source: Wikipedia)", 0.85,
			[]byte(`[{"stage":"classify_intent","outcome":"ok"}]`), created,
		))

	var out bytes.Buffer
	a := admin{cache: cache.Disabled(logger.NewNoOpLogger()), runs: runs}
	require.NoError(t, run(context.Background(), a, []string{"run", "-id", id.String()}, &out))

	assert.Contains(t, out.String(), `"runId": "`+id.String()+`"`)
	assert.Contains(t, out.String(), `"retrievalB": "cached"`)
	assert.Contains(t, out.String(), `"stage": "classify_intent"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_UnknownRunErrorReturnedUnchanged(t *testing.T) {
	runs, mock := newHistory(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(selectRunPattern)).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(runColumns))

	a := admin{cache: cache.Disabled(logger.NewNoOpLogger()), runs: runs}
	err := run(context.Background(), a, []string{"run", "-id", id.String()}, &bytes.Buffer{})

	assert.ErrorIs(t, err, history.ErrRunNotFound)
}

func TestRun_RunNeedsIDAndHistory(t *testing.T) {
	a := admin{cache: cache.Disabled(logger.NewNoOpLogger())}

	err := run(context.Background(), a, []string{"run"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")

	err = run(context.Background(), a, []string{"run", "-id", "not-a-uuid"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")

	err = run(context.Background(), a, []string{"run", "-id", uuid.NewString()}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query history is disabled")
}
