package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// KeyPrefix namespaces every entry written by the result cache.
const KeyPrefix = "company_info"

// Key is a fully derived store key.
type Key string

func (k Key) String() string {
	return string(k)
}

var recencyMarkers = []string{"news", "latest", "recent"}

// IsTimeSensitive reports whether a normalized logical key carries a
// recency marker and must bind to the calendar day.
func IsTimeSensitive(normalized string) bool {
	for _, m := range recencyMarkers {
		if strings.Contains(normalized, m) {
			return true
		}
	}
	return false
}

// DeriveKey computes the store key for (logical, source) as of at.
// Keys whose logical part contains a recency marker also include the UTC
// date of at, so they roll over at midnight UTC regardless of TTL.
func DeriveKey(logical, source string, at time.Time) (Key, error) {
	if !utf8.ValidString(logical) || !utf8.ValidString(source) {
		return "", newError(ErrCacheKey, "derive_key", errors.New("key is not valid UTF-8"))
	}
	if strings.TrimSpace(source) == "" {
		return "", newError(ErrCacheKey, "derive_key", errors.New("source tag is empty"))
	}

	normalized := strings.ToLower(strings.TrimSpace(logical))
	content := normalized + ":" + source
	if IsTimeSensitive(normalized) {
		content += ":" + at.UTC().Format("2006-01-02")
	}

	sum := sha256.Sum256([]byte(content))
	return Key(KeyPrefix + ":" + hex.EncodeToString(sum[:])), nil
}

// matchPattern builds the SCAN pattern used by bulk invalidation.
func matchPattern(pattern string) string {
	return KeyPrefix + ":" + pattern + "*"
}
