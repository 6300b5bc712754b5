package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/model"
)

// PriorSource looks up existing fact-checks for a claim. Lookup failures
// return an empty slice; the judge falls through to its own verdict.
type PriorSource interface {
	Lookup(ctx context.Context, claimText string) []model.FactCheckHit
}

// FactCheckClient queries a claim-review API for prior fact-checks
type FactCheckClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      cache.Cache
	ttl        time.Duration
	verbose    bool
}

// NewFactCheckClient returns a client, or nil when no endpoint is configured
func NewFactCheckClient(cfg *model.Config, store cache.Cache) *FactCheckClient {
	if cfg.FactCheck.BaseURL == "" {
		return nil
	}
	timeout := time.Duration(cfg.FactCheck.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FactCheckClient{
		baseURL:    strings.TrimRight(cfg.FactCheck.BaseURL, "/"),
		apiKey:     cfg.FactCheck.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      store,
		ttl:        cfg.Cache.ResultTTL,
		verbose:    cfg.Output.Verbose,
	}
}

type factCheckResponse struct {
	Claims []struct {
		Review []struct {
			Publisher struct {
				Name string `json:"name"`
			} `json:"publisher"`
			URL        string `json:"url"`
			Rating     string `json:"textualRating"`
			ReviewDate string `json:"reviewDate"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// Lookup returns prior fact-checks for a claim, cached by claim hash
func (c *FactCheckClient) Lookup(ctx context.Context, claimText string) []model.FactCheckHit {
	key := cache.Key(cache.CategoryFactCheck, cache.ContentHash(claimText))
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			var hits []model.FactCheckHit
			if err := json.Unmarshal(data, &hits); err == nil {
				return hits
			}
		}
	}

	hits := c.query(ctx, claimText)

	if c.cache != nil {
		if data, err := json.Marshal(hits); err == nil {
			_ = c.cache.Set(key, data, c.ttl)
		}
	}
	return hits
}

func (c *FactCheckClient) query(ctx context.Context, claimText string) []model.FactCheckHit {
	params := url.Values{}
	params.Set("query", claimText)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/claims:search?"+params.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.warn("fact-check lookup failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.warn("fact-check lookup returned %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}

	var parsed factCheckResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.warn("fact-check response unparseable: %v", err)
		return nil
	}

	var hits []model.FactCheckHit
	for _, claim := range parsed.Claims {
		for _, review := range claim.Review {
			hit := model.FactCheckHit{
				Publisher: review.Publisher.Name,
				Rating:    review.Rating,
				URL:       review.URL,
			}
			if t, err := time.Parse("2006-01-02", review.ReviewDate); err == nil {
				hit.Date = &t
			} else if t, err := time.Parse(time.RFC3339, review.ReviewDate); err == nil {
				hit.Date = &t
			}
			hits = append(hits, hit)
		}
	}
	return hits
}

func (c *FactCheckClient) warn(format string, args ...any) {
	if c.verbose {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}

// ratingStance maps a textual fact-check rating onto a verdict direction.
// Unmappable ratings are ignored rather than guessed.
func ratingStance(rating string) (model.Verdict, bool) {
	r := strings.ToLower(strings.TrimSpace(rating))
	switch {
	case strings.Contains(r, "true") && !strings.Contains(r, "half") && !strings.Contains(r, "mostly false"):
		if strings.HasPrefix(r, "false") || strings.Contains(r, "not true") || strings.Contains(r, "untrue") {
			return model.VerdictContradicted, true
		}
		return model.VerdictSupported, true
	case strings.Contains(r, "false") || strings.Contains(r, "incorrect") ||
		strings.Contains(r, "misleading") || strings.Contains(r, "pants on fire") ||
		strings.Contains(r, "debunked"):
		return model.VerdictContradicted, true
	case strings.Contains(r, "correct") || strings.Contains(r, "accurate"):
		return model.VerdictSupported, true
	default:
		return "", false
	}
}
