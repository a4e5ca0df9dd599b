// Package tavily fetches web search results from the Tavily API.
package tavily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	commonhttp "company-intel/internal/common/http"
	"company-intel/internal/common/logger"
	"company-intel/internal/models"
)

const SourceName = "Tavily"

const defaultMaxResults = 5

var (
	ErrSearchFailed  = errors.New("WEB_SEARCH_FAILED")
	ErrMissingAPIKey = errors.New("WEB_SEARCH_API_KEY_MISSING")
)

type Config struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout, commonhttp.WithMaxRetries(1)),
		logger: log.With(map[string]interface{}{"provider": SourceName}),
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search returns one evidence item per result that has content, in the
// order Tavily ranked them.
func (c *Client) Search(ctx context.Context, query string) ([]models.EvidenceItem, error) {
	if strings.TrimSpace(query) == "" {
		return []models.EvidenceItem{}, nil
	}
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	req := searchRequest{
		APIKey:      c.config.APIKey,
		Query:       query,
		MaxResults:  c.config.MaxResults,
		SearchDepth: "basic",
	}

	var resp searchResponse
	if err := c.http.PostJSON(ctx, c.config.BaseURL+"/search", req, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	items := make([]models.EvidenceItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		item := models.EvidenceItem{
			Content:     r.Content,
			SourceName:  SourceName,
			OriginQuery: query,
		}
		if r.URL != "" {
			u := r.URL
			item.URL = &u
		}
		items = append(items, item)
	}

	c.logger.Info("web search completed", map[string]interface{}{
		"query":       query,
		"resultCount": len(items),
	})
	return items, nil
}
