// Package serpapi looks up shopping results through the SerpAPI
// google_shopping engine.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"saun/internal/domain"
)

const (
	defaultBaseURL = "https://serpapi.com"
	defaultTimeout = 20 * time.Second
	engine         = "google_shopping"
)

// Options controls how the SerpAPI client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{apiKey: strings.TrimSpace(opts.APIKey), baseURL: baseURL, client: client}
}

type shoppingResult struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	ProductLink string   `json:"product_link"`
	Thumbnail   string   `json:"thumbnail"`
	Price       string   `json:"price"`
	Source      string   `json:"source"`
	Rating      *float64 `json:"rating"`
	Reviews     *int     `json:"reviews"`
}

type searchResponse struct {
	Error           string           `json:"error"`
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

// SearchTopResult returns the first shopping result for query, or nil when
// the engine found nothing. market is an optional ISO country code.
func (c *Client) SearchTopResult(ctx context.Context, query, market string) (*domain.ProductHit, error) {
	if c.apiKey == "" {
		return nil, domain.NewError(domain.KindRemoteProvider, "serpapi: api key not configured")
	}
	params := url.Values{}
	params.Set("engine", engine)
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	if market != "" {
		params.Set("gl", strings.ToLower(market))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.KindRemoteProvider, err, "serpapi: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, domain.WrapError(domain.KindRemoteProvider, err, "serpapi: read response")
	}

	var payload searchResponse
	decodeErr := json.Unmarshal(body, &payload)
	if resp.StatusCode >= http.StatusBadRequest {
		if decodeErr == nil && payload.Error != "" {
			return nil, domain.NewError(domain.KindRemoteProvider, "serpapi status %d: %s", resp.StatusCode, payload.Error)
		}
		return nil, domain.NewError(domain.KindRemoteProvider, "serpapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if decodeErr != nil {
		return nil, domain.WrapError(domain.KindRemoteProvider, decodeErr, "serpapi: decode response")
	}
	if payload.Error != "" {
		// The engine reports empty result sets through the error field.
		if strings.Contains(strings.ToLower(payload.Error), "hasn't returned any results") {
			return nil, nil
		}
		return nil, domain.NewError(domain.KindRemoteProvider, "serpapi: %s", payload.Error)
	}
	if len(payload.ShoppingResults) == 0 {
		return nil, nil
	}

	top := payload.ShoppingResults[0]
	link := top.Link
	if link == "" {
		link = top.ProductLink
	}
	return &domain.ProductHit{
		Title:       top.Title,
		Link:        link,
		Image:       top.Thumbnail,
		Price:       top.Price,
		Source:      top.Source,
		Rating:      top.Rating,
		ReviewCount: top.Reviews,
	}, nil
}
