package extract

import (
	"strings"

	"github.com/psokolov/verdex/internal/model"
)

// Lexical marker tables for claim-type classification. Pattern-based on
// purpose: this gate runs before any model call and decides whether the
// expensive retrieval/verification stages run at all.

var opinionMarkers = []string{
	"i think", "i believe", "i feel", "in my opinion", "in my view",
	"it seems", "arguably", "the best", "the worst", "the greatest",
	"beautiful", "ugly", "amazing", "terrible", "awful", "wonderful",
	"overrated", "underrated", "disappointing", "impressive",
	"should ", "ought to", "must not be allowed", "deserves",
}

var predictionMarkers = []string{
	"will ", "won't", "going to", "is expected to", "is likely to",
	"is projected to", "forecast", "by 2030", "by 2040", "by 2050",
	"in the coming years", "next year", "is set to", "is poised to",
}

var personalMarkers = []string{
	"i saw", "i visited", "i went", "i met", "i tried", "i experienced",
	"happened to me", "my experience", "when i was", "i remember",
	"i noticed", "i heard", "i was told",
}

// Classify classifies claim text into a type and decides verifiability.
// Non-factual types are not verifiable and skip the rest of the pipeline.
func Classify(text string) (model.ClaimType, bool, string) {
	lower := " " + strings.ToLower(text) + " "

	for _, marker := range personalMarkers {
		if strings.Contains(lower, marker) {
			return model.ClaimTypePersonal, false, "first-person experiential statement cannot be verified against public evidence"
		}
	}

	for _, marker := range opinionMarkers {
		if strings.Contains(lower, marker) {
			return model.ClaimTypeOpinion, false, "subjective judgment, not a checkable fact"
		}
	}

	for _, marker := range predictionMarkers {
		if strings.Contains(lower, marker) {
			return model.ClaimTypePrediction, false, "statement about the future cannot be verified yet"
		}
	}

	return model.ClaimTypeFactual, true, ""
}

// classify applies classification to a claim in place. A non-verifiable
// claim gets its terminal verdict here, before retrieval ever runs.
func classify(claim *model.Claim) {
	claimType, verifiable, reason := Classify(claim.Text)

	claim.Type = claimType
	claim.IsVerifiable = verifiable
	claim.VerifiabilityReason = reason

	if !verifiable {
		claim.Verdict = model.VerdictNotFactCheckable
		claim.Rationale = reason
	}
}
