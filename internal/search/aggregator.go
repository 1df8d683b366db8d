// Package search fans product lookups out to the shopping provider with a
// shared TTL cache in front of it.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"saun/internal/domain"
)

// HardConcurrencyCap bounds parallel remote lookups regardless of caller input.
const HardConcurrencyCap = 4

const (
	defaultTTL           = 15 * time.Minute
	defaultLookupTimeout = 20 * time.Second
)

// Searcher is the remote shopping collaborator.
type Searcher interface {
	SearchTopResult(ctx context.Context, query, market string) (*domain.ProductHit, error)
}

// Options configures an Aggregator.
type Options struct {
	TTL           time.Duration
	LookupTimeout time.Duration
	Logger        zerolog.Logger
}

// Aggregator resolves queries through the cache then the remote searcher.
type Aggregator struct {
	cache         *Cache
	remote        Searcher
	ttl           time.Duration
	lookupTimeout time.Duration
	logger        zerolog.Logger
}

func NewAggregator(cache *Cache, remote Searcher, opts Options) *Aggregator {
	if cache == nil {
		cache = NewCache(nil)
	}
	a := &Aggregator{
		cache:         cache,
		remote:        remote,
		ttl:           opts.TTL,
		lookupTimeout: opts.LookupTimeout,
		logger:        opts.Logger,
	}
	if a.ttl <= 0 {
		a.ttl = defaultTTL
	}
	if a.lookupTimeout <= 0 {
		a.lookupTimeout = defaultLookupTimeout
	}
	return a
}

// SingleSearch resolves one query.
func (a *Aggregator) SingleSearch(ctx context.Context, query string) domain.QueryResult {
	return a.lookup(ctx, MarketFrom(ctx), strings.TrimSpace(query))
}

// BatchSearch resolves queries concurrently. Duplicates (case-insensitive) are
// dropped keeping the first spelling, the list is truncated to maxItems, and
// results come back in that order. A failing query only affects its own
// entry. If ctx ends before all lookups finish the context error is returned;
// unfinished lookups keep running detached and still fill the cache.
func (a *Aggregator) BatchSearch(ctx context.Context, queries []string, maxItems, maxConcurrency int) ([]domain.QueryResult, error) {
	unique := dedupe(queries)
	if maxItems > 0 && len(unique) > maxItems {
		unique = unique[:maxItems]
	}
	if len(unique) == 0 {
		return []domain.QueryResult{}, nil
	}

	limit := maxConcurrency
	if limit <= 0 || limit > HardConcurrencyCap {
		limit = HardConcurrencyCap
	}
	if limit > len(unique) {
		limit = len(unique)
	}

	market := MarketFrom(ctx)
	detached := context.WithoutCancel(ctx)

	var mu sync.Mutex
	byKey := make(map[string]domain.QueryResult, len(unique))

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(limit)
		for _, q := range unique {
			g.Go(func() error {
				res := a.lookup(detached, market, q)
				mu.Lock()
				byKey[NormalizeQuery(q)] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	out := make([]domain.QueryResult, len(unique))
	for i, q := range unique {
		out[i] = byKey[NormalizeQuery(q)]
	}
	return out, nil
}

func (a *Aggregator) lookup(ctx context.Context, market, query string) domain.QueryResult {
	res := domain.QueryResult{Query: query}
	if query == "" {
		res.Error = "query is required"
		return res
	}
	key := cacheKey(market, query)
	if hit, ok := a.cache.Get(key); ok {
		res.Item = hit
		res.Cached = true
		return res
	}
	if a.remote == nil {
		res.Error = "search provider not configured"
		return res
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()
	hit, err := a.remote.SearchTopResult(lookupCtx, query, market)
	if err != nil {
		a.logger.Warn().Err(err).Str("query", query).Str("market", market).Msg("search: lookup failed")
		res.Error = err.Error()
		return res
	}
	a.cache.Set(key, hit, a.ttl)
	res.Item = hit
	return res
}

func dedupe(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := NormalizeQuery(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}
