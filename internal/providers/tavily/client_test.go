package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-intel/internal/common/logger"
)

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, APIKey: apiKey, Timeout: time.Second}, logger.NewNoOpLogger())
}

func TestSearch_FiltersEmptyContent(t *testing.T) {
	c := newTestClient(t, "tvly-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-test", req.APIKey)
		assert.Equal(t, "OpenAI headquarters current location", req.Query)
		assert.Equal(t, 5, req.MaxResults)

		w.Write([]byte(`{"results": [
			{"title": "OpenAI", "url": "https://openai.com/about", "content": "OpenAI is based in San Francisco.", "score": 0.9},
			{"title": "Blank", "url": "https://example.com", "content": "  ", "score": 0.5},
			{"title": "No URL", "content": "Headquarters: Mission District.", "score": 0.4}
		]}`))
	})

	items, err := c.Search(context.Background(), "OpenAI headquarters current location")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, SourceName, items[0].SourceName)
	require.NotNil(t, items[0].URL)
	assert.Equal(t, "https://openai.com/about", *items[0].URL)
	assert.Equal(t, "OpenAI headquarters current location", items[0].OriginQuery)

	assert.Nil(t, items[1].URL)
	assert.Equal(t, "Headquarters: Mission District.", items[1].Content)
}

func TestSearch_MissingAPIKey(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})

	_, err := c.Search(context.Background(), "OpenAI")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})

	_, err := c.Search(context.Background(), "OpenAI")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSearchFailed))
}
