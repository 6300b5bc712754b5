package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/psokolov/verdex/internal/model"
	"golang.org/x/time/rate"
)

// Client calls a JSON NLI inference endpoint with rate limiting and one
// retry on transient failures.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an NLI client from configuration
func NewClient(cfg model.NLIConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 4
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type classifyRequest struct {
	Pairs []Pair `json:"pairs"`
}

type classifyResponse struct {
	Results []PairScores `json:"results"`
}

// ClassifyPairs scores a batch of premise/hypothesis pairs
func (c *Client) ClassifyPairs(ctx context.Context, pairs []Pair) ([]PairScores, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("NLI endpoint not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(classifyRequest{Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(resp.Results) != len(pairs) {
		return nil, fmt.Errorf("NLI returned %d results for %d pairs", len(resp.Results), len(pairs))
	}

	for i, r := range resp.Results {
		sum := r.Entailment + r.Contradiction + r.Neutral
		if sum < 0.99 || sum > 1.01 {
			return nil, fmt.Errorf("NLI pair %d probabilities sum to %v, want 1", i, sum)
		}
	}

	return resp.Results, nil
}

// doWithRetry executes the request with a single retry on 5xx or transport error
func (c *Client) doWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("NLI request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("NLI status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("NLI status %d: %s", resp.StatusCode, string(respBody))
		}

		return respBody, nil
	}

	return nil, lastErr
}
