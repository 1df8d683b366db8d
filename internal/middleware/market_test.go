package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"saun/internal/search"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name: "cloudflare unknown ignored",
			setup: func(r *http.Request) {
				r.Header.Set("CF-IPCountry", "XX")
				r.Header.Set("Accept-Language", "de-DE")
			},
			want: "DE",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "script subtag skipped",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "zh-Hant")
			},
			want: "",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := ResolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMarketMiddlewareSetsContext(t *testing.T) {
	var got string
	handler := Market(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = search.MarketFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=lamp", nil)
	req.Header.Set("X-Country-Code", "FR")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "fr" {
		t.Fatalf("expected market fr, got %q", got)
	}
}
