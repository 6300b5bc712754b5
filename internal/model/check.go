package model

import "time"

// CheckStatus is the lifecycle state of a verification job. The pipeline
// moves a check from pending through running to completed; failed is
// reachable only outside it, since fatal configuration errors abort at
// startup before a check exists and per-claim failures degrade to
// uncertain verdicts instead.
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusRunning   CheckStatus = "running"
	CheckStatusCompleted CheckStatus = "completed"
	CheckStatusFailed    CheckStatus = "failed"
)

// Check represents one verification job over a piece of submitted content.
// Only the orchestrator mutates a Check; once completed or failed it is terminal.
type Check struct {
	ID        string      `json:"id"`
	Status    CheckStatus `json:"status"`
	Content   string      `json:"content"`              // Sanitized plain text under verification
	SourceURL string      `json:"source_url,omitempty"` // Where the content came from, if known
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Claims []Claim `json:"claims"`

	// Evidence is keyed by claim index. A claim with no entry either
	// short-circuited as not fact-checkable or retrieved nothing.
	Evidence map[int][]Evidence `json:"evidence,omitempty"`

	Transparency float64 `json:"transparency"` // Share of claims carrying a full rationale and trail (0-1)
	SafetyRisk   float64 `json:"safety_risk"`  // Heuristic risk score for harmful misinformation (0-1)

	StageTimings map[string]time.Duration `json:"stage_timings,omitempty"` // Wall time per pipeline stage

	Error string `json:"error,omitempty"` // Set only for failed checks
}

// Terminal reports whether the check has reached a final state
func (c *Check) Terminal() bool {
	return c.Status == CheckStatusCompleted || c.Status == CheckStatusFailed
}

// VerdictCounts tallies claim verdicts for summary output
func (c *Check) VerdictCounts() map[Verdict]int {
	counts := make(map[Verdict]int)
	for _, claim := range c.Claims {
		if claim.Verdict != "" {
			counts[claim.Verdict]++
		}
	}
	return counts
}
