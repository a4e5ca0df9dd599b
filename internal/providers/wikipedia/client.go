// Package wikipedia fetches encyclopedia summaries from the MediaWiki API.
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	commonhttp "company-intel/internal/common/http"
	"company-intel/internal/common/logger"
	"company-intel/internal/models"
)

// SourceName is the attribution carried by every item from this provider.
const SourceName = "Wikipedia"

const (
	defaultTopK     = 3
	defaultMaxChars = 4000
)

var ErrSearchFailed = errors.New("WIKIPEDIA_SEARCH_FAILED")

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	TopK      int
	MaxChars  int
}

type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	var opts []commonhttp.Option
	if cfg.UserAgent != "" {
		opts = append(opts, commonhttp.WithHeader("User-Agent", cfg.UserAgent))
	}
	return &Client{
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout, append(opts, commonhttp.WithMaxRetries(1))...),
		logger: log.With(map[string]interface{}{"provider": SourceName}),
	}
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Index   int    `json:"index"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns at most one evidence item: the intro extracts of the top
// matching pages, concatenated and capped at MaxChars.
func (c *Client) Search(ctx context.Context, query string) ([]models.EvidenceItem, error) {
	if strings.TrimSpace(query) == "" {
		return []models.EvidenceItem{}, nil
	}

	var resp queryResponse
	if err := c.http.GetJSON(ctx, c.searchURL(query), &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	pages := resp.Query.Pages
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	var sections []string
	for _, p := range pages {
		extract := strings.TrimSpace(p.Extract)
		if p.Missing || extract == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("Page: %s\nSummary: %s", p.Title, extract))
	}

	if len(sections) == 0 {
		c.logger.Info("no encyclopedia results", map[string]interface{}{"query": query})
		return []models.EvidenceItem{}, nil
	}

	content := strings.Join(sections, "\n\n")
	if r := []rune(content); len(r) > c.config.MaxChars {
		content = string(r[:c.config.MaxChars])
	}

	return []models.EvidenceItem{{
		Content:     content,
		SourceName:  SourceName,
		OriginQuery: query,
	}}, nil
}

func (c *Client) searchURL(query string) string {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", fmt.Sprintf("%d", c.config.TopK))
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	return c.config.BaseURL + "/w/api.php?" + params.Encode()
}
