package model

// Claim represents one atomic factual assertion extracted from submitted content
type Claim struct {
	Text       string  `json:"text"`                // The claim text itself
	Index      int     `json:"index"`               // Position in the source content (0-based)
	Confidence float64 `json:"confidence"`          // Extraction confidence (0-1)
	Category   string  `json:"category,omitempty"`  // Topical category (e.g., "economy", "health")
	Heuristic  string  `json:"heuristic,omitempty"` // Extraction rule that matched when the heuristic fallback ran

	Type                ClaimType `json:"type"`                           // factual, opinion, prediction, personal_experience
	IsVerifiable        bool      `json:"is_verifiable"`                  // Whether the claim can be fact-checked at all
	VerifiabilityReason string    `json:"verifiability_reason,omitempty"` // Why the claim is not verifiable, if so

	TimeMarkers     []string      `json:"time_markers,omitempty"` // Temporal expressions found in the claim
	TimeReference   TimeReference `json:"time_reference"`         // Time-reference class
	IsTimeSensitive bool          `json:"is_time_sensitive"`      // Whether evidence must be recent

	ContextGroupID string `json:"context_group_id,omitempty"` // Links causally related claims
	DependsOn      []int  `json:"depends_on,omitempty"`       // Indices of prerequisite claims

	Verdict   Verdict `json:"verdict,omitempty"`
	Score     int     `json:"score"` // Calibrated confidence in the verdict (0-100)
	Rationale string  `json:"rationale,omitempty"`

	Uncertainty   *UncertaintyExplanation `json:"uncertainty,omitempty"`    // Present only for uncertain verdicts
	DecisionTrail []DecisionStep          `json:"decision_trail,omitempty"` // Stage-by-stage record of the decision
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeFactual    ClaimType = "factual"             // Verifiable statement about the world
	ClaimTypeOpinion    ClaimType = "opinion"             // Subjective judgment
	ClaimTypePrediction ClaimType = "prediction"          // Statement about the future
	ClaimTypePersonal   ClaimType = "personal_experience" // First-person experiential statement
)

// Verdict is the outcome of verifying a single claim
type Verdict string

const (
	VerdictSupported        Verdict = "supported"
	VerdictContradicted     Verdict = "contradicted"
	VerdictUncertain        Verdict = "uncertain"
	VerdictNotFactCheckable Verdict = "not_fact_checkable"
)

// TimeReference classifies when a claim's subject matter is anchored in time
type TimeReference string

const (
	TimeReferenceNone    TimeReference = "none"    // No temporal anchoring
	TimeReferencePast    TimeReference = "past"    // Settled historical fact
	TimeReferenceRecent  TimeReference = "recent"  // Recent events, evidence ages quickly
	TimeReferenceCurrent TimeReference = "current" // Present-state claims ("is", "currently")
	TimeReferenceFuture  TimeReference = "future"  // Future-oriented
)

// UncertaintyCategory names the reason a verdict came back uncertain
type UncertaintyCategory string

const (
	UncertaintyInsufficientEvidence UncertaintyCategory = "insufficient_evidence"
	UncertaintyConflictingEvidence  UncertaintyCategory = "conflicting_evidence"
	UncertaintyLowQuality           UncertaintyCategory = "low_evidence_quality"
	UncertaintyTimeMismatch         UncertaintyCategory = "time_sensitivity_mismatch"
	UncertaintyAmbiguous            UncertaintyCategory = "ambiguous"
)

// UncertaintyExplanation is a structured account of why a claim stayed uncertain
type UncertaintyExplanation struct {
	Category UncertaintyCategory `json:"category"`
	Summary  string              `json:"summary"`
	Missing  []string            `json:"missing,omitempty"` // What evidence would resolve the uncertainty
}

// DecisionStep is one entry in a claim's decision trail
type DecisionStep struct {
	Stage   string `json:"stage"`            // classify, retrieve, verify, judge
	Outcome string `json:"outcome"`          // What the stage concluded
	Detail  string `json:"detail,omitempty"` // Transparent data behind the conclusion
}
