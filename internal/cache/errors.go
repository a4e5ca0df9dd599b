package cache

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheConnection    = errors.New("CACHE_CONNECTION_ERROR")
	ErrCacheOperation     = errors.New("CACHE_OPERATION_ERROR")
	ErrCacheSerialization = errors.New("CACHE_SERIALIZATION_ERROR")
	ErrCacheKey           = errors.New("CACHE_KEY_ERROR")
	ErrCacheConfiguration = errors.New("CACHE_CONFIGURATION_ERROR")
)

var kindMessages = map[error]string{
	ErrCacheConnection:    "Failed to connect to Redis server",
	ErrCacheOperation:     "Cache operation failed",
	ErrCacheSerialization: "Cache serialization error",
	ErrCacheKey:           "Invalid cache key operation",
	ErrCacheConfiguration: "Invalid cache configuration",
}

// Error is returned by every ResultCache operation that fails. Kind is one
// of the ErrCache* sentinels and Op names the operation.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// storeError classifies a store failure as connectivity or operation.
func storeError(op string, err error) *Error {
	if isConnectionError(err) {
		return newError(ErrCacheConnection, op, err)
	}
	return newError(ErrCacheOperation, op, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "pool timeout")
}

// Kind reports the cache error code carried by err, or "" if err did not
// come from this package.
func Kind(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind != nil {
		return ce.Kind.Error()
	}
	return ""
}
