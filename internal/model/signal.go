package model

// QualityTier buckets the average credibility of the evidence behind a signal
type QualityTier string

const (
	QualityTierHigh    QualityTier = "high"   // Average credibility >= 0.75
	QualityTierMedium  QualityTier = "medium" // Average credibility >= 0.5
	QualityTierLow     QualityTier = "low"    // Anything below
	QualityTierUnknown QualityTier = "unknown"
)

// VerificationSignal aggregates entailment results for one claim.
// It is computed transiently from the claim's evidence and never mutated
// piecemeal; recompute from scratch whenever the evidence set changes.
type VerificationSignal struct {
	Supporting    int `json:"supporting"`
	Contradicting int `json:"contradicting"`
	Neutral       int `json:"neutral"`

	MaxEntailment    float64 `json:"max_entailment"`    // Highest entailment probability observed
	MaxContradiction float64 `json:"max_contradiction"` // Highest contradiction probability observed

	Quality       QualityTier `json:"quality"`
	Diversity     float64     `json:"diversity"`      // 1 - max ownership-cluster concentration
	UniqueDomains int         `json:"unique_domains"`
}

// Total returns the number of scored claim/evidence pairs
func (s VerificationSignal) Total() int {
	return s.Supporting + s.Contradicting + s.Neutral
}
