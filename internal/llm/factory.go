package llm

import (
	"context"
	"fmt"
	"strings"
)

// Config holds the configuration for one provider instance
type Config struct {
	Provider  string // "openai", "anthropic"
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // Seconds
	MaxTokens int
}

// NewProvider creates a single provider from configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic)", config.Provider)
	}
}

// Chain tries each provider in order until one returns a schema-valid
// response. Provider errors and schema violations both advance the chain.
type Chain struct {
	providers []Provider
}

// NewChain builds a failover chain from primary and fallback configs,
// skipping any that are unconfigured.
func NewChain(configs ...Config) (*Chain, error) {
	var providers []Provider
	for _, cfg := range configs {
		p, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		if p != nil {
			providers = append(providers, p)
		}
	}
	return &Chain{providers: providers}, nil
}

// NewChainOf wraps already-constructed providers, for tests
func NewChainOf(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Len returns the number of configured providers
func (c *Chain) Len() int {
	return len(c.providers)
}

// ExtractClaims tries each provider until one returns a valid extraction
func (c *Chain) ExtractClaims(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	var lastErr error
	for _, p := range c.providers {
		resp, err := p.ExtractClaims(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no LLM providers configured")
	}
	return nil, lastErr
}

// Judge tries each provider until one returns a valid judgment
func (c *Chain) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	var lastErr error
	for _, p := range c.providers {
		resp, err := p.Judge(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no LLM providers configured")
	}
	return nil, lastErr
}
