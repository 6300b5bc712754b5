package llm

import (
	"fmt"
	"strings"
)

const extractSystemPrompt = `You extract atomic factual assertions from text for fact-checking. Respond with strict JSON only, no prose and no code fences.`

const judgeSystemPrompt = `You are a fact-checking judge. You weigh aggregated entailment signals and evidence summaries and respond with strict JSON only, no prose and no code fences.`

// buildExtractPrompt constructs the extraction prompt with the response schema
func buildExtractPrompt(req ExtractRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Extract up to %d atomic factual claims from the text below.

Rules:
- One assertion per claim; split compound sentences.
- Keep the claim self-contained: resolve pronouns from context where possible.
- confidence is your 0-1 estimate that the sentence states a checkable fact.
- category is a short topical label (e.g., "economy", "health", "politics") or omitted.
- When one claim asserts that another caused it (e.g., "X happened, causing Y"),
  give both the same context_group_id and list the prerequisite claim's index
  in the dependent claim's depends_on.

Respond with JSON matching exactly:
{"claims":[{"text":"...","confidence":0.9,"category":"...","context_group_id":"...","depends_on":[0]}]}

Omit optional fields rather than sending null or empty values.

Text:
%s`, req.MaxClaims, req.Content)

	return b.String()
}

// buildJudgePrompt constructs the judgment prompt with signals and evidence
func buildJudgePrompt(req JudgeRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Claim: %q

Aggregated entailment signals:
- supporting pairs: %d
- contradicting pairs: %d
- neutral pairs: %d
- max entailment probability: %.2f
- max contradiction probability: %.2f
- source diversity: %.2f
- evidence quality tier: %s

Evidence summaries:
`, req.ClaimText, req.Supporting, req.Contradicting, req.Neutral,
		req.MaxEntailment, req.MaxContradiction, req.Diversity, req.QualityTier)

	if len(req.EvidenceSummaries) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for _, s := range req.EvidenceSummaries {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString(`
Decide among "supported", "contradicted", "uncertain". Only the signals and
evidence above count; do not use outside knowledge of the claim's topic.
confidence is your 0-1 estimate given the evidence shown.
`)

	if req.WantTrail {
		b.WriteString(`Include "trail": a short ordered list of the reasoning steps that led to
the verdict. If the verdict is "uncertain", include "uncertainty_category"
(one of insufficient_evidence, conflicting_evidence, low_evidence_quality,
time_sensitivity_mismatch, ambiguous) and "uncertainty_summary".

Respond with JSON matching exactly:
{"verdict":"...","confidence":0.8,"rationale":"...","trail":["..."],"uncertainty_category":"...","uncertainty_summary":"..."}
`)
	} else {
		b.WriteString(`Respond with JSON matching exactly:
{"verdict":"...","confidence":0.8,"rationale":"..."}
`)
	}

	b.WriteString("Omit optional fields rather than sending null or empty values.")

	return b.String()
}
