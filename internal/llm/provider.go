package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider defines the interface for instruction-following model providers.
// All responses are strict JSON validated at the boundary; an out-of-schema
// response is a SchemaError, never a partially trusted result.
type Provider interface {
	// Name returns the provider name
	Name() string

	// ExtractClaims pulls atomic factual assertions out of plain text
	ExtractClaims(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// Judge renders a verdict for one claim given aggregated signals
	Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error)
}

// ExtractRequest contains the input for claim extraction
type ExtractRequest struct {
	Content   string // Sanitized plain text, pre-truncated upstream
	MaxClaims int
}

// ClaimDraft is one extracted claim before classification and verification
type ClaimDraft struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	Category       string  `json:"category,omitempty"`
	ContextGroupID string  `json:"context_group_id,omitempty"`
	DependsOn      []int   `json:"depends_on,omitempty"`
}

// ExtractResponse contains the validated extraction output
type ExtractResponse struct {
	Claims []ClaimDraft `json:"claims"`
}

// JudgeRequest contains the aggregated inputs for a verdict
type JudgeRequest struct {
	ClaimText         string
	Supporting        int
	Contradicting     int
	Neutral           int
	MaxEntailment     float64
	MaxContradiction  float64
	Diversity         float64
	QualityTier       string
	EvidenceSummaries []string // "domain: snippet" lines, already truncated
	WantTrail         bool     // Request a decision trail and structured uncertainty
}

// JudgeResponse contains the validated judgment output
type JudgeResponse struct {
	Verdict             string   `json:"verdict"` // supported, contradicted, uncertain
	Confidence          float64  `json:"confidence"`
	Rationale           string   `json:"rationale"`
	Trail               []string `json:"trail,omitempty"`
	UncertaintyCategory string   `json:"uncertainty_category,omitempty"`
	UncertaintySummary  string   `json:"uncertainty_summary,omitempty"`
}

// SchemaError indicates the model returned JSON that does not satisfy the
// expected schema. It triggers provider failover, never a partial parse.
type SchemaError struct {
	Provider string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: response schema invalid: %s", e.Provider, e.Reason)
}

// parseExtractResponse validates raw model output against the extraction schema
func parseExtractResponse(provider, raw string) (*ExtractResponse, error) {
	raw = stripFences(raw)

	var resp ExtractResponse
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&resp); err != nil {
		return nil, &SchemaError{Provider: provider, Reason: err.Error()}
	}

	for i, c := range resp.Claims {
		if strings.TrimSpace(c.Text) == "" {
			return nil, &SchemaError{Provider: provider, Reason: fmt.Sprintf("claim %d has empty text", i)}
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return nil, &SchemaError{Provider: provider, Reason: fmt.Sprintf("claim %d confidence %v out of [0,1]", i, c.Confidence)}
		}
		for _, dep := range c.DependsOn {
			if dep < 0 || dep >= len(resp.Claims) {
				return nil, &SchemaError{Provider: provider, Reason: fmt.Sprintf("claim %d depends on out-of-range index %d", i, dep)}
			}
		}
	}

	return &resp, nil
}

// parseJudgeResponse validates raw model output against the judgment schema
func parseJudgeResponse(provider, raw string) (*JudgeResponse, error) {
	raw = stripFences(raw)

	var resp JudgeResponse
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&resp); err != nil {
		return nil, &SchemaError{Provider: provider, Reason: err.Error()}
	}

	switch resp.Verdict {
	case "supported", "contradicted", "uncertain":
	default:
		return nil, &SchemaError{Provider: provider, Reason: fmt.Sprintf("unknown verdict %q", resp.Verdict)}
	}

	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, &SchemaError{Provider: provider, Reason: fmt.Sprintf("confidence %v out of [0,1]", resp.Confidence)}
	}

	if resp.Verdict == "uncertain" && resp.UncertaintyCategory != "" {
		switch resp.UncertaintyCategory {
		case "insufficient_evidence", "conflicting_evidence", "low_evidence_quality",
			"time_sensitivity_mismatch", "ambiguous":
		default:
			return nil, &SchemaError{Provider: provider, Reason: fmt.Sprintf("unknown uncertainty category %q", resp.UncertaintyCategory)}
		}
	}

	return &resp, nil
}

// stripFences removes markdown code fences some models wrap JSON in
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
	}
	return strings.TrimSpace(raw)
}
