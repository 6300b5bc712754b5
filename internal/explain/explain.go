// Package explain assembles the transparency surface of a completed check:
// per-claim decision trails, confidence breakdowns and the check-level
// transparency score. Everything here is derived from data the pipeline
// already produced; the package never calls external services.
package explain

import (
	"fmt"

	"github.com/psokolov/verdex/internal/model"
)

// ConfidenceBreakdown itemizes the evidence properties behind a confidence
// score so a reader can see what moved it.
type ConfidenceBreakdown struct {
	Verdict       model.Verdict     `json:"verdict"`
	Score         int               `json:"score"`
	Supporting    int               `json:"supporting"`
	Contradicting int               `json:"contradicting"`
	Neutral       int               `json:"neutral"`
	MaxEntailment float64           `json:"max_entailment"`
	Quality       model.QualityTier `json:"quality"`
	Diversity     float64           `json:"diversity"`
	UniqueDomains int               `json:"unique_domains"`
}

// Breakdown builds the confidence breakdown for one judged claim
func Breakdown(claim model.Claim, sig model.VerificationSignal) ConfidenceBreakdown {
	return ConfidenceBreakdown{
		Verdict:       claim.Verdict,
		Score:         claim.Score,
		Supporting:    sig.Supporting,
		Contradicting: sig.Contradicting,
		Neutral:       sig.Neutral,
		MaxEntailment: sig.MaxEntailment,
		Quality:       sig.Quality,
		Diversity:     sig.Diversity,
		UniqueDomains: sig.UniqueDomains,
	}
}

// Trail prefixes the judge's trail with the earlier pipeline stages so the
// full path from claim text to verdict reads top to bottom.
func Trail(claim model.Claim, evidenceCount int, judgeTrail []model.DecisionStep) []model.DecisionStep {
	steps := []model.DecisionStep{
		{
			Stage:   "classify",
			Outcome: string(claim.Type),
			Detail:  classifyDetail(claim),
		},
	}
	if claim.Verdict != model.VerdictNotFactCheckable {
		steps = append(steps, model.DecisionStep{
			Stage:   "retrieve",
			Outcome: fmt.Sprintf("%d evidence items", evidenceCount),
			Detail:  retrieveDetail(claim),
		})
	}
	return append(steps, judgeTrail...)
}

func classifyDetail(claim model.Claim) string {
	if !claim.IsVerifiable {
		return claim.VerifiabilityReason
	}
	if claim.Heuristic != "" {
		return claim.Heuristic
	}
	return ""
}

func retrieveDetail(claim model.Claim) string {
	if claim.IsTimeSensitive {
		return fmt.Sprintf("time-sensitive (%s), evidence window applied", claim.TimeReference)
	}
	return ""
}

// Transparency scores how completely a check explains itself: each claim
// contributes the fraction of the explainability artifacts it should have
// (verdict, rationale, decision trail, and an uncertainty explanation when
// the verdict is uncertain). Range 0-1; a check with no claims scores 0.
func Transparency(check *model.Check) float64 {
	if len(check.Claims) == 0 {
		return 0
	}

	var sum float64
	for _, claim := range check.Claims {
		sum += claimCompleteness(claim)
	}
	return sum / float64(len(check.Claims))
}

func claimCompleteness(claim model.Claim) float64 {
	parts := 3.0
	have := 0.0
	if claim.Verdict != "" {
		have++
	}
	if claim.Rationale != "" {
		have++
	}
	if len(claim.DecisionTrail) > 0 {
		have++
	}
	if claim.Verdict == model.VerdictUncertain {
		parts++
		if claim.Uncertainty != nil {
			have++
		}
	}
	return have / parts
}
