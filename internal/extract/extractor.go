package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/llm"
	"github.com/psokolov/verdex/internal/model"
)

// Extractor turns free text into a bounded list of atomic claims. The model
// chain runs first; if every provider fails or returns invalid schema, the
// rule-based heuristic takes over. Extraction never errors out: the worst
// case is an empty claim list.
type Extractor struct {
	chain     *llm.Chain
	heuristic *HeuristicExtractor
	cache     cache.Cache
	claimsTTL time.Duration
	verbose   bool
}

// NewExtractor creates a claim extractor backed by the given provider chain
func NewExtractor(chain *llm.Chain, c cache.Cache, cfg *model.Config) *Extractor {
	return &Extractor{
		chain:     chain,
		heuristic: NewHeuristicExtractor(),
		cache:     c,
		claimsTTL: cfg.Cache.ClaimsTTL,
		verbose:   cfg.Output.Verbose,
	}
}

// Extract returns up to maxClaims classified claims from the content.
// Results are cached by a hash of the normalized content.
func (e *Extractor) Extract(ctx context.Context, content string, maxClaims int) []model.Claim {
	if maxClaims <= 0 {
		maxClaims = 10
	}

	key := cache.Key(cache.CategoryClaims, cache.ContentHash(content), fmt.Sprint(maxClaims))
	if data, found := e.cache.Get(key); found {
		var claims []model.Claim
		if err := json.Unmarshal(data, &claims); err == nil {
			return claims
		}
	}

	drafts := e.draft(ctx, content, maxClaims)

	claims := make([]model.Claim, 0, len(drafts))
	for i, d := range drafts {
		if i >= maxClaims {
			break
		}
		claim := d.toClaim(i)
		classify(&claim)
		claims = append(claims, claim)
	}

	if data, err := json.Marshal(claims); err == nil {
		_ = e.cache.Set(key, data, e.claimsTTL)
	}

	return claims
}

// draft runs the LLM chain with the heuristic as final fallback
func (e *Extractor) draft(ctx context.Context, content string, maxClaims int) []llmDraft {
	if e.chain != nil && e.chain.Len() > 0 {
		resp, err := e.chain.ExtractClaims(ctx, llm.ExtractRequest{
			Content:   content,
			MaxClaims: maxClaims,
		})
		if err == nil {
			drafts := make([]llmDraft, 0, len(resp.Claims))
			for _, c := range resp.Claims {
				drafts = append(drafts, llmDraft{
					Text:           c.Text,
					Confidence:     c.Confidence,
					Category:       c.Category,
					ContextGroupID: c.ContextGroupID,
					DependsOn:      c.DependsOn,
				})
			}
			return drafts
		}
		if e.verbose {
			fmt.Fprintf(os.Stderr, "Warning: model extraction failed, using heuristic: %v\n", err)
		}
	}

	return e.heuristic.Extract(content, maxClaims)
}
