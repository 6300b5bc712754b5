package judge

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/psokolov/verdex/internal/llm"
	"github.com/psokolov/verdex/internal/model"
)

// Judgment is the verdict stage's output for one claim
type Judgment struct {
	Verdict     model.Verdict
	Score       int // Calibrated confidence, 0-100
	Rationale   string
	Uncertainty *model.UncertaintyExplanation
	Trail       []model.DecisionStep
	PriorHits   []model.FactCheckHit
}

// modelJudge is the slice of the LLM chain the judge needs
type modelJudge interface {
	Judge(ctx context.Context, req llm.JudgeRequest) (*llm.JudgeResponse, error)
	Len() int
}

// Judge assigns verdicts from verification signals. Prior fact-checks
// short-circuit the stage; otherwise the LLM chain writes the rationale and
// the rule-based calibration bounds its verdict. When no model is available
// the rules alone decide.
type Judge struct {
	chain   modelJudge
	priors  PriorSource
	cfg     model.JudgeConfig
	sem     chan struct{} // bounds concurrent model judgment calls
	explain bool
	verbose bool
}

// NewJudge wires the judgment stage. priors may be nil when no fact-check
// endpoint is configured.
func NewJudge(chain modelJudge, priors PriorSource, cfg *model.Config) *Judge {
	maxConcurrent := cfg.Judge.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Judge{
		chain:   chain,
		priors:  priors,
		cfg:     cfg.Judge,
		sem:     make(chan struct{}, maxConcurrent),
		explain: cfg.Features.EnhancedExplainability,
		verbose: cfg.Output.Verbose,
	}
}

// Judge produces the final verdict for one claim
func (j *Judge) Judge(ctx context.Context, claim model.Claim, sig model.VerificationSignal, items []model.Evidence) Judgment {
	if prior, ok := j.fromPriors(ctx, claim); ok {
		return prior
	}

	ruleVerdict, category := j.ruleVerdict(claim, sig)
	score := j.calibrate(ruleVerdict, sig)

	if j.chain != nil && j.chain.Len() > 0 {
		if jr, err := j.judgeWithModel(ctx, claim, sig, items); err == nil {
			return j.fromModel(jr, ruleVerdict, category, score, sig)
		} else if j.verbose {
			fmt.Fprintf(os.Stderr, "Warning: model judgment failed, using rule verdict: %v\n", err)
		}
	}

	out := Judgment{
		Verdict:   ruleVerdict,
		Score:     score,
		Rationale: j.ruleRationale(ruleVerdict, sig),
	}
	if ruleVerdict == model.VerdictUncertain {
		out.Uncertainty = j.explainUncertainty(category, sig)
	}
	if j.explain {
		out.Trail = j.trail(out, sig, "signal rules")
	}
	return out
}

// fromPriors short-circuits on confident prior fact-checks: when at least
// PriorMinConfident of the mappable ratings agree on a direction, that
// direction wins without a model call.
func (j *Judge) fromPriors(ctx context.Context, claim model.Claim) (Judgment, bool) {
	if j.priors == nil {
		return Judgment{}, false
	}

	hits := j.priors.Lookup(ctx, claim.Text)
	if len(hits) == 0 {
		return Judgment{}, false
	}

	counts := map[model.Verdict]int{}
	mappable := 0
	for _, hit := range hits {
		if verdict, ok := ratingStance(hit.Rating); ok {
			counts[verdict]++
			mappable++
		}
	}
	if mappable == 0 {
		return Judgment{}, false
	}

	for _, verdict := range []model.Verdict{model.VerdictSupported, model.VerdictContradicted} {
		ratio := float64(counts[verdict]) / float64(mappable)
		if ratio < j.cfg.PriorMinConfident {
			continue
		}

		publishers := publisherList(hits)
		out := Judgment{
			Verdict:   verdict,
			Score:     int(math.Round(60 + 35*ratio)),
			Rationale: fmt.Sprintf("Previously fact-checked by %s; %d of %d ratings agree.", publishers, counts[verdict], mappable),
			PriorHits: hits,
		}
		if j.explain {
			out.Trail = []model.DecisionStep{{
				Stage:   "judge",
				Outcome: fmt.Sprintf("prior fact-check: %s", verdict),
				Detail:  fmt.Sprintf("%d/%d mappable ratings from %s", counts[verdict], mappable, publishers),
			}}
		}
		return out, true
	}

	return Judgment{}, false
}

// ruleVerdict applies the decisive-margin rules. Supported needs the
// supporting count to beat contradicting by more than the margin AND a max
// entailment above the strong threshold; contradicted is the mirror image.
// Everything else is uncertain, with a category explaining which condition
// failed.
func (j *Judge) ruleVerdict(claim model.Claim, sig model.VerificationSignal) (model.Verdict, model.UncertaintyCategory) {
	if sig.Supporting-sig.Contradicting > j.cfg.SupportMargin && sig.MaxEntailment > j.cfg.StrongEntailment {
		return model.VerdictSupported, ""
	}
	if sig.Contradicting-sig.Supporting > j.cfg.SupportMargin && sig.MaxContradiction > j.cfg.StrongEntailment {
		return model.VerdictContradicted, ""
	}

	switch {
	case sig.Total() == 0 || sig.Supporting+sig.Contradicting == 0:
		return model.VerdictUncertain, model.UncertaintyInsufficientEvidence
	case sig.Supporting > 0 && sig.Contradicting > 0:
		return model.VerdictUncertain, model.UncertaintyConflictingEvidence
	case sig.Quality == model.QualityTierLow:
		return model.VerdictUncertain, model.UncertaintyLowQuality
	case claim.IsTimeSensitive && sig.Total() < 2:
		return model.VerdictUncertain, model.UncertaintyTimeMismatch
	default:
		return model.VerdictUncertain, model.UncertaintyAmbiguous
	}
}

// calibrate maps a signal to a 0-100 confidence. For decisive verdicts the
// score starts at 50 and adds, in order of weight: entailment strength above
// the strong threshold (up to 25), the decisive margin (one point per net
// decisive pair, up to 10), evidence quality (up to 10) and ownership
// diversity (up to 5). The margin term grows by a full point per added
// decisive pair while a single pair can shift the diversity term by less
// than one, so adding agreeing evidence never lowers the score. Uncertain
// verdicts score below 50 on the quality and diversity terms alone.
func (j *Judge) calibrate(verdict model.Verdict, sig model.VerificationSignal) int {
	quality := map[model.QualityTier]float64{
		model.QualityTierHigh:    1,
		model.QualityTierMedium:  0.6,
		model.QualityTierLow:     0.2,
		model.QualityTierUnknown: 0,
	}[sig.Quality]

	if verdict == model.VerdictUncertain {
		return int(math.Round(20 + 15*quality + 10*sig.Diversity))
	}

	strength := sig.MaxEntailment
	if verdict == model.VerdictContradicted {
		strength = sig.MaxContradiction
	}
	above := (strength - j.cfg.StrongEntailment) / (1 - j.cfg.StrongEntailment)
	if above < 0 {
		above = 0
	}

	margin := float64(sig.Supporting - sig.Contradicting)
	if verdict == model.VerdictContradicted {
		margin = -margin
	}
	if margin > 10 {
		margin = 10
	}

	score := 50 + 25*above + margin + 10*quality + 5*sig.Diversity
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// judgeWithModel calls the chain under the judgment concurrency bound.
// Claims run in parallel upstream, so more claims than judgment slots can
// arrive here at once; the semaphore holds the overflow.
func (j *Judge) judgeWithModel(ctx context.Context, claim model.Claim, sig model.VerificationSignal, items []model.Evidence) (*llm.JudgeResponse, error) {
	select {
	case j.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-j.sem }()

	return j.chain.Judge(ctx, j.buildRequest(claim, sig, items))
}

func (j *Judge) buildRequest(claim model.Claim, sig model.VerificationSignal, items []model.Evidence) llm.JudgeRequest {
	summaries := make([]string, 0, len(items))
	for _, item := range items {
		snippet := item.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		summaries = append(summaries, item.Domain+": "+snippet)
	}

	return llm.JudgeRequest{
		ClaimText:         claim.Text,
		Supporting:        sig.Supporting,
		Contradicting:     sig.Contradicting,
		Neutral:           sig.Neutral,
		MaxEntailment:     sig.MaxEntailment,
		MaxContradiction:  sig.MaxContradiction,
		Diversity:         sig.Diversity,
		QualityTier:       string(sig.Quality),
		EvidenceSummaries: summaries,
		WantTrail:         j.explain,
	}
}

// fromModel merges a model judgment with the rule verdict. The model owns
// the rationale; the rules own the verdict bound: a model may soften a
// decisive rule verdict to uncertain but never flip it, and may never
// promote an uncertain signal to decisive.
func (j *Judge) fromModel(jr *llm.JudgeResponse, ruleVerdict model.Verdict, category model.UncertaintyCategory, ruleScore int, sig model.VerificationSignal) Judgment {
	verdict := model.Verdict(jr.Verdict)
	if verdict != ruleVerdict && verdict != model.VerdictUncertain {
		verdict = ruleVerdict
	}

	score := ruleScore
	if verdict == model.VerdictUncertain && ruleVerdict != model.VerdictUncertain {
		score = j.calibrate(model.VerdictUncertain, sig)
	}

	out := Judgment{
		Verdict:   verdict,
		Score:     score,
		Rationale: jr.Rationale,
	}

	if verdict == model.VerdictUncertain {
		if jr.UncertaintyCategory != "" {
			out.Uncertainty = &model.UncertaintyExplanation{
				Category: model.UncertaintyCategory(jr.UncertaintyCategory),
				Summary:  jr.UncertaintySummary,
			}
		} else {
			if category == "" {
				category = model.UncertaintyAmbiguous
			}
			out.Uncertainty = j.explainUncertainty(category, sig)
		}
	}

	if j.explain {
		out.Trail = j.trail(out, sig, "model judgment")
		for _, step := range jr.Trail {
			out.Trail = append(out.Trail, model.DecisionStep{Stage: "judge", Outcome: step})
		}
	}
	return out
}

func (j *Judge) ruleRationale(verdict model.Verdict, sig model.VerificationSignal) string {
	switch verdict {
	case model.VerdictSupported:
		return fmt.Sprintf("%d of %d sources support the claim with strong entailment (%.2f).",
			sig.Supporting, sig.Total(), sig.MaxEntailment)
	case model.VerdictContradicted:
		return fmt.Sprintf("%d of %d sources contradict the claim with strong entailment (%.2f).",
			sig.Contradicting, sig.Total(), sig.MaxContradiction)
	default:
		return fmt.Sprintf("Evidence is not decisive: %d supporting, %d contradicting, %d neutral.",
			sig.Supporting, sig.Contradicting, sig.Neutral)
	}
}

func (j *Judge) explainUncertainty(category model.UncertaintyCategory, sig model.VerificationSignal) *model.UncertaintyExplanation {
	out := &model.UncertaintyExplanation{Category: category}
	switch category {
	case model.UncertaintyInsufficientEvidence:
		out.Summary = "Too little decisive evidence was found to support or contradict the claim."
		out.Missing = []string{"independent sources directly addressing the claim"}
	case model.UncertaintyConflictingEvidence:
		out.Summary = fmt.Sprintf("Sources disagree: %d support the claim and %d contradict it.", sig.Supporting, sig.Contradicting)
		out.Missing = []string{"authoritative primary sources resolving the disagreement"}
	case model.UncertaintyLowQuality:
		out.Summary = "The available evidence comes from low-credibility sources."
		out.Missing = []string{"coverage from high-credibility outlets or official statistics"}
	case model.UncertaintyTimeMismatch:
		out.Summary = "The claim is time-sensitive and the evidence found may not reflect the current state."
		out.Missing = []string{"recent sources published within the claim's time window"}
	default:
		out.Category = model.UncertaintyAmbiguous
		out.Summary = "The evidence does not clearly bear on the claim as stated."
		out.Missing = []string{"sources addressing the claim's specific wording"}
	}
	return out
}

func (j *Judge) trail(out Judgment, sig model.VerificationSignal, basis string) []model.DecisionStep {
	return []model.DecisionStep{
		{
			Stage:   "verify",
			Outcome: fmt.Sprintf("%d supporting, %d contradicting, %d neutral", sig.Supporting, sig.Contradicting, sig.Neutral),
			Detail:  fmt.Sprintf("max entailment %.2f, max contradiction %.2f, quality %s, diversity %.2f", sig.MaxEntailment, sig.MaxContradiction, sig.Quality, sig.Diversity),
		},
		{
			Stage:   "judge",
			Outcome: fmt.Sprintf("%s (%d/100)", out.Verdict, out.Score),
			Detail:  basis,
		},
	}
}

func publisherList(hits []model.FactCheckHit) string {
	seen := map[string]bool{}
	var names []string
	for _, hit := range hits {
		name := hit.Publisher
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "prior fact-checkers"
	}
	return strings.Join(names, ", ")
}
