package cache

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store bounded by entry count. Expired
// entries are dropped lazily on read and skipped by Scan.
type MemoryStore struct {
	entries  *lru.Cache[string, memoryEntry]
	now      func() time.Time
	commands atomic.Int64
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		return nil, newError(ErrCacheConfiguration, "memory_store", fmt.Errorf("size must be positive, got %d", size))
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, newError(ErrCacheConfiguration, "memory_store", err)
	}
	return &MemoryStore{entries: entries, now: time.Now}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.commands.Add(1)
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if s.expired(e) {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.commands.Add(1)
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries.Add(key, e)
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) (int64, error) {
	s.commands.Add(1)
	var n int64
	for _, k := range keys {
		if s.entries.Remove(k) {
			n++
		}
	}
	return n, nil
}

// Scan matches keys with Redis-style glob patterns. pageSize is ignored.
func (s *MemoryStore) Scan(_ context.Context, match string, _ int64) ([]string, error) {
	s.commands.Add(1)
	var keys []string
	for _, k := range s.entries.Keys() {
		ok, err := path.Match(match, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if e, found := s.entries.Peek(k); found && !s.expired(e) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.commands.Add(1)
	return nil
}

func (s *MemoryStore) Info(context.Context) (map[string]string, error) {
	s.commands.Add(1)
	return map[string]string{
		"used_memory_human":          fmt.Sprintf("%d keys", s.entries.Len()),
		"connected_clients":          "1",
		"total_connections_received": "1",
		"total_commands_processed":   strconv.FormatInt(s.commands.Load(), 10),
	}, nil
}

func (s *MemoryStore) FlushDB(context.Context) error {
	s.commands.Add(1)
	s.entries.Purge()
	return nil
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
