package serpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"saun/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestSearchTopResultMapsFirstResult(t *testing.T) {
	var gotQuery string
	client := NewClient(Options{
		APIKey: "test-key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.RawQuery
			if req.URL.Path != "/search.json" {
				t.Fatalf("unexpected path %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{"shopping_results":[
				{"title":"Linen Sofa","product_link":"https://shop.example/sofa","thumbnail":"https://img.example/sofa.jpg","price":"$499.00","source":"Example Home","rating":4.6,"reviews":128},
				{"title":"Other"}]}`), nil
		})},
	})

	hit, err := client.SearchTopResult(context.Background(), "linen sofa", "US")
	if err != nil {
		t.Fatalf("SearchTopResult returned error: %v", err)
	}
	if hit == nil || hit.Title != "Linen Sofa" || hit.Link != "https://shop.example/sofa" || hit.Price != "$499.00" {
		t.Fatalf("unexpected hit: %+v", hit)
	}
	if hit.Rating == nil || *hit.Rating != 4.6 || hit.ReviewCount == nil || *hit.ReviewCount != 128 {
		t.Fatalf("rating fields not mapped: %+v", hit)
	}
	for _, want := range []string{"engine=google_shopping", "q=linen+sofa", "gl=us", "api_key=test-key"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestSearchTopResultNoResults(t *testing.T) {
	client := NewClient(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"error":"Google hasn't returned any results for this query."}`), nil
		})},
	})
	hit, err := client.SearchTopResult(context.Background(), "zzzz", "")
	if err != nil || hit != nil {
		t.Fatalf("expected nil hit without error, got %+v %v", hit, err)
	}
}

func TestSearchTopResultProviderError(t *testing.T) {
	client := NewClient(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"error":"Invalid API key."}`), nil
		})},
	})
	_, err := client.SearchTopResult(context.Background(), "sofa", "")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Fatalf("error should carry provider message: %v", err)
	}
}

func TestSearchTopResultRequiresKey(t *testing.T) {
	_, err := NewClient(Options{}).SearchTopResult(context.Background(), "sofa", "")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure without key, got %v", err)
	}
}
