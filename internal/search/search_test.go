package search

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"saun/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubSearcher struct {
	mu       sync.Mutex
	calls    map[string]int
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	release  chan struct{}
	fail     map[string]error
}

func (s *stubSearcher) SearchTopResult(ctx context.Context, query, market string) (*domain.ProductHit, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[query]++
	s.mu.Unlock()

	if s.release != nil {
		<-s.release
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := s.fail[strings.ToLower(query)]; err != nil {
		return nil, err
	}
	return &domain.ProductHit{Title: query + " deluxe", Source: market}, nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func TestCacheExpiresLazily(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := NewCache(clock.Now)
	hit := &domain.ProductHit{Title: "Sofa"}

	cache.Set("Sofa", hit, 10*time.Second)
	clock.Advance(9 * time.Second)
	got, ok := cache.Get("  SOFA ")
	if !ok || got != hit {
		t.Fatalf("expected fresh hit before expiry, got %v %v", got, ok)
	}

	clock.Advance(2 * time.Second)
	if _, ok := cache.Get("sofa"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read, len=%d", cache.Len())
	}
}

func TestCacheStoresNilHit(t *testing.T) {
	cache := NewCache(nil)
	cache.Set("unobtainium chair", nil, time.Minute)
	hit, ok := cache.Get("Unobtainium  Chair")
	if !ok || hit != nil {
		t.Fatalf("expected cached empty result, got %v %v", hit, ok)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := map[string]string{
		"  Floor   Lamp ": "floor lamp",
		"SOFA":            "sofa",
		"ÉCLAIR  Table":   "éclair table",
	}
	for in, want := range tests {
		if got := NormalizeQuery(in); got != want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBatchSearchDedupesAndKeepsOrder(t *testing.T) {
	remote := &stubSearcher{}
	agg := NewAggregator(NewCache(nil), remote, Options{})

	results, err := agg.BatchSearch(context.Background(), []string{"Sofa", "sofa", "Lamp"}, 12, 4)
	if err != nil {
		t.Fatalf("BatchSearch returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Query != "Sofa" || results[1].Query != "Lamp" {
		t.Fatalf("unexpected order: %+v", results)
	}
	if remote.callCount() != 2 {
		t.Fatalf("expected 2 remote calls, got %d", remote.callCount())
	}
}

func TestBatchSearchIsolatesFailures(t *testing.T) {
	remote := &stubSearcher{fail: map[string]error{"lamp": errors.New("upstream 500")}}
	agg := NewAggregator(NewCache(nil), remote, Options{})

	results, err := agg.BatchSearch(context.Background(), []string{"Sofa", "Lamp", "Rug"}, 0, 0)
	if err != nil {
		t.Fatalf("BatchSearch returned error: %v", err)
	}
	if results[1].Error == "" || results[1].Item != nil {
		t.Fatalf("expected lamp to fail: %+v", results[1])
	}
	if results[0].Item == nil || results[2].Item == nil {
		t.Fatalf("siblings should succeed: %+v", results)
	}

	// failures are not cached
	if _, ok := agg.cache.Get("lamp"); ok {
		t.Fatalf("failed lookup must not be cached")
	}
}

func TestBatchSearchServesFromCache(t *testing.T) {
	remote := &stubSearcher{}
	agg := NewAggregator(NewCache(nil), remote, Options{})

	if _, err := agg.BatchSearch(context.Background(), []string{"Sofa"}, 0, 0); err != nil {
		t.Fatalf("first BatchSearch: %v", err)
	}
	results, err := agg.BatchSearch(context.Background(), []string{"SOFA"}, 0, 0)
	if err != nil {
		t.Fatalf("second BatchSearch: %v", err)
	}
	if !results[0].Cached {
		t.Fatalf("expected cached result: %+v", results[0])
	}
	if remote.callCount() != 1 {
		t.Fatalf("expected a single remote call, got %d", remote.callCount())
	}
}

func TestBatchSearchRespectsConcurrencyCap(t *testing.T) {
	remote := &stubSearcher{delay: 20 * time.Millisecond}
	agg := NewAggregator(NewCache(nil), remote, Options{})

	queries := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	if _, err := agg.BatchSearch(context.Background(), queries, 0, 50); err != nil {
		t.Fatalf("BatchSearch returned error: %v", err)
	}
	if peak := remote.peak.Load(); peak > HardConcurrencyCap {
		t.Fatalf("peak concurrency %d exceeds cap %d", peak, HardConcurrencyCap)
	}

	remote = &stubSearcher{delay: 10 * time.Millisecond}
	agg = NewAggregator(NewCache(nil), remote, Options{})
	if _, err := agg.BatchSearch(context.Background(), queries, 0, 2); err != nil {
		t.Fatalf("BatchSearch returned error: %v", err)
	}
	if peak := remote.peak.Load(); peak > 2 {
		t.Fatalf("peak concurrency %d exceeds requested 2", peak)
	}
}

func TestBatchSearchTruncatesToMaxItems(t *testing.T) {
	agg := NewAggregator(NewCache(nil), &stubSearcher{}, Options{})
	results, err := agg.BatchSearch(context.Background(), []string{"a", "b", "c"}, 2, 0)
	if err != nil {
		t.Fatalf("BatchSearch returned error: %v", err)
	}
	if len(results) != 2 || results[1].Query != "b" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestBatchSearchCallerCancelDetachesLookups(t *testing.T) {
	release := make(chan struct{})
	remote := &stubSearcher{release: release}
	cache := NewCache(nil)
	agg := NewAggregator(cache, remote, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := agg.BatchSearch(ctx, []string{"Sofa"}, 0, 0)
		errCh <- err
	}()

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := cache.Get("sofa"); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("detached lookup never populated the cache")
}

func TestMarketNamespacesCache(t *testing.T) {
	remote := &stubSearcher{}
	agg := NewAggregator(NewCache(nil), remote, Options{})

	us := agg.SingleSearch(WithMarket(context.Background(), "US"), "Sofa")
	de := agg.SingleSearch(WithMarket(context.Background(), "de"), "Sofa")
	if us.Item.Source != "us" || de.Item.Source != "de" {
		t.Fatalf("market not passed through: %+v %+v", us.Item, de.Item)
	}
	if us.Cached || de.Cached {
		t.Fatalf("different markets must not share cache entries")
	}
}

func TestSingleSearchEmptyQuery(t *testing.T) {
	agg := NewAggregator(NewCache(nil), &stubSearcher{}, Options{})
	if res := agg.SingleSearch(context.Background(), "   "); res.Error == "" {
		t.Fatalf("expected error for empty query")
	}
}

func TestAggregatorLogsFailedLookups(t *testing.T) {
	var buf bytes.Buffer
	remote := &stubSearcher{fail: map[string]error{"desk lamp": errors.New("upstream 503")}}
	agg := NewAggregator(NewCache(nil), remote, Options{Logger: zerolog.New(&buf)})

	if got := agg.SingleSearch(context.Background(), "desk lamp"); got.Error == "" {
		t.Fatalf("expected per-query error, got %+v", got)
	}
	if !strings.Contains(buf.String(), `"query":"desk lamp"`) || !strings.Contains(buf.String(), "upstream 503") {
		t.Fatalf("lookup failure not logged: %s", buf.String())
	}
}
