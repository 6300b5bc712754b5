package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/model"
)

// Client queries a JSON search API. Any failure (transport error, non-2xx,
// malformed body) is logged and returned as an empty result set.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	cache      cache.Cache
	searchTTL  time.Duration
	verbose    bool
}

// NewClient creates a search client
func NewClient(cfg model.SearchConfig, cacheCfg model.CacheConfig, c cache.Cache, verbose bool) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      c,
		searchTTL:  cacheCfg.SearchTTL,
		verbose:    verbose,
	}
}

// searchResponse is the provider's wire format
type searchResponse struct {
	Results []struct {
		URL       string `json:"url"`
		Title     string `json:"title"`
		Snippet   string `json:"snippet"`
		Published string `json:"published_date,omitempty"` // RFC 3339 date or datetime
	} `json:"results"`
}

// Search implements Provider
func (c *Client) Search(ctx context.Context, query string, filter *DateFilter) []model.SearchResult {
	if c.baseURL == "" {
		return nil
	}

	filterKey := ""
	if filter != nil {
		filterKey = filter.After.Format("2006-01-02")
	}
	key := cache.Key(cache.CategorySearch, query, filterKey)
	if data, found := c.cache.Get(key); found {
		var results []model.SearchResult
		if err := json.Unmarshal(data, &results); err == nil {
			return results
		}
	}

	results := c.doSearch(ctx, query, filter)

	if data, err := json.Marshal(results); err == nil {
		_ = c.cache.Set(key, data, c.searchTTL)
	}

	return results
}

func (c *Client) doSearch(ctx context.Context, query string, filter *DateFilter) []model.SearchResult {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprint(c.maxResults))
	if filter != nil {
		params.Set("after", filter.After.Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		c.warn("create search request: %v", err)
		return nil
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.warn("search request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.warn("search returned status %d", resp.StatusCode)
		return nil
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.warn("decode search response: %v", err)
		return nil
	}

	results := make([]model.SearchResult, 0, len(body.Results))
	for _, r := range body.Results {
		if r.URL == "" {
			continue
		}
		sr := model.SearchResult{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Snippet,
		}
		if t := parseDate(r.Published); t != nil {
			sr.Published = t
		}
		results = append(results, sr)
	}

	return results
}

func (c *Client) warn(format string, args ...interface{}) {
	if c.verbose {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}

// parseDate accepts RFC 3339 datetimes or bare dates
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
