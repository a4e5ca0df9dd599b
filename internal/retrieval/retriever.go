// Package retrieval runs cache-first evidence lookups against one source.
package retrieval

import (
	"context"
	"errors"
	"time"

	"company-intel/internal/cache"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/models"
)

// Outcome tells "found nothing" apart from "could not look".
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeCached  Outcome = "cached"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

var errNoEvidence = errors.New("no evidence")

// Searcher is a live evidence provider.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.EvidenceItem, error)
}

// Result is the outcome of one retrieval. Items is never nil.
type Result struct {
	Source  string
	Query   string
	Items   []models.EvidenceItem
	Outcome Outcome
	Err     error
}

// Skipped is the result reported when the pipeline decides not to look.
func Skipped(source string) Result {
	return Result{Source: source, Items: []models.EvidenceItem{}, Outcome: OutcomeSkipped}
}

type Retriever struct {
	source   string
	cacheTag string
	searcher Searcher
	build    QueryBuilder
	cache    *cache.ResultCache
	now      func() time.Time
	logger   logger.Logger
}

type Option func(*Retriever)

func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		r.now = now
	}
}

// New builds a retriever for one source. cacheTag is the source component of
// the cache key.
func New(source, cacheTag string, searcher Searcher, build QueryBuilder, rc *cache.ResultCache, log logger.Logger, opts ...Option) *Retriever {
	r := &Retriever{
		source:   source,
		cacheTag: cacheTag,
		searcher: searcher,
		build:    build,
		cache:    rc,
		now:      time.Now,
		logger:   log.With(map[string]interface{}{"component": "retriever", "source": source}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) Source() string {
	return r.source
}

// FetchEvidence consults the result cache and falls back to the live provider.
// Failures are reported in the Result, never returned.
func (r *Retriever) FetchEvidence(ctx context.Context, intent *models.Intent) Result {
	res := r.retrieve(ctx, intent)
	metrics.RetrievalOutcomes.WithLabelValues(r.source, string(res.Outcome)).Inc()
	return res
}

func (r *Retriever) retrieve(ctx context.Context, intent *models.Intent) Result {
	res := Result{Source: r.source, Items: []models.EvidenceItem{}}
	if intent == nil {
		res.Outcome = OutcomeSkipped
		return res
	}

	res.Query = r.build(intent, r.now())
	if res.Query == "" {
		res.Outcome = OutcomeEmpty
		return res
	}

	fetch := func(ctx context.Context) ([]models.EvidenceItem, error) {
		items, err := r.searcher.Search(ctx, res.Query)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, errNoEvidence
		}
		return items, nil
	}

	var (
		items []models.EvidenceItem
		hit   bool
		err   error
	)
	key, kerr := r.cache.Key(res.Query, r.cacheTag)
	if kerr != nil {
		r.logger.Warn("could not derive cache key, bypassing cache", map[string]interface{}{"error": kerr})
		items, err = fetch(ctx)
	} else {
		ttl := cache.ResolveTTL(cache.CategoryFor(intent.QueryType))
		items, hit, err = cache.Memoize(ctx, r.cache, key, ttl, fetch)
	}

	if r.cache.Enabled() && kerr == nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		metrics.CacheLookups.WithLabelValues(r.source, result).Inc()
	}

	switch {
	case errors.Is(err, errNoEvidence):
		res.Outcome = OutcomeEmpty
	case err != nil:
		r.logger.Warn("evidence retrieval failed", map[string]interface{}{
			"query": res.Query,
			"error": err,
		})
		res.Outcome = OutcomeFailed
		res.Err = err
	case len(items) == 0:
		res.Outcome = OutcomeEmpty
	case hit:
		res.Items = items
		res.Outcome = OutcomeCached
	default:
		res.Items = items
		res.Outcome = OutcomeOK
	}
	return res
}
