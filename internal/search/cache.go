package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"saun/internal/domain"
)

// Cache is a TTL map from normalized query to the top product hit. A nil hit
// is a valid cached value meaning "no results". Entries are evicted lazily on
// read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	hit     *domain.ProductHit
	expires time.Time
}

// NewCache returns an empty cache. now may be nil to use time.Now.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{entries: make(map[string]cacheEntry), now: now}
}

// Get returns the value for key and whether it was present and fresh.
func (c *Cache) Get(key string) (*domain.ProductHit, bool) {
	key = NormalizeQuery(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.hit, true
}

// Set stores hit under key for ttl. Non-positive ttls are ignored.
func (c *Cache) Set(key string, hit *domain.ProductHit, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	key = NormalizeQuery(key)
	c.mu.Lock()
	c.entries[key] = cacheEntry{hit: hit, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NormalizeQuery case-folds q and collapses runs of whitespace.
func NormalizeQuery(q string) string {
	return cases.Fold().String(strings.Join(strings.Fields(q), " "))
}

type marketKey struct{}

// WithMarket attaches an ISO country code used to localize lookups.
func WithMarket(ctx context.Context, country string) context.Context {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return ctx
	}
	return context.WithValue(ctx, marketKey{}, country)
}

// MarketFrom returns the country attached by WithMarket, if any.
func MarketFrom(ctx context.Context) string {
	v, _ := ctx.Value(marketKey{}).(string)
	return v
}

func cacheKey(market, query string) string {
	if market == "" {
		return NormalizeQuery(query)
	}
	return market + "|" + NormalizeQuery(query)
}
