package cache

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
)

func TestDeriveKey_Deterministic(t *testing.T) {
	k1, err := DeriveKey("Tesla headquarters", "web", day1)
	require.NoError(t, err)
	k2, err := DeriveKey("  tesla HEADQUARTERS ", "web", day1.Add(5*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1.String(), "company_info:"))
	assert.Len(t, strings.TrimPrefix(k1.String(), "company_info:"), 64)
}

func TestDeriveKey_SourceTagChangesKey(t *testing.T) {
	a, err := DeriveKey("Tesla headquarters", "web", day1)
	require.NoError(t, err)
	b, err := DeriveKey("Tesla headquarters", "encyclopedia", day1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDeriveKey_RecencyBinding(t *testing.T) {
	tests := []struct {
		logical  string
		sameKeys bool
	}{
		{"latest Tesla news", false},
		{"Tesla recent developments", false},
		{"Tesla headquarters", true},
	}

	for _, tt := range tests {
		t.Run(tt.logical, func(t *testing.T) {
			k1, err := DeriveKey(tt.logical, "web", day1)
			require.NoError(t, err)
			k2, err := DeriveKey(tt.logical, "web", day2)
			require.NoError(t, err)

			if tt.sameKeys {
				assert.Equal(t, k1, k2)
			} else {
				assert.NotEqual(t, k1, k2)
			}
		})
	}
}

func TestDeriveKey_UsesUTCDate(t *testing.T) {
	// 23:30 UTC on day1 is already day2 in UTC+2.
	east := time.FixedZone("UTC+2", 2*60*60)
	late := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)

	k1, err := DeriveKey("latest news", "web", late)
	require.NoError(t, err)
	k2, err := DeriveKey("latest news", "web", late.In(east))
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
}

func TestDeriveKey_MalformedInputIsKeyError(t *testing.T) {
	tests := []struct {
		name    string
		logical string
		source  string
	}{
		{"invalid utf8", "\xff\xfe", "web"},
		{"empty source", "Tesla", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := DeriveKey(tt.logical, tt.source, day1)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrCacheKey))
				assert.False(t, errors.Is(err, ErrCacheOperation))
			})
		})
	}
}

func TestDeriveKey_EmptyLogicalKeyIsAllowed(t *testing.T) {
	_, err := DeriveKey("", "web", day1)
	assert.NoError(t, err)
}
