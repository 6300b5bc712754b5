package judge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/psokolov/verdex/internal/llm"
	"github.com/psokolov/verdex/internal/model"
)

type fakeChain struct {
	resp  *llm.JudgeResponse
	err   error
	calls int
}

func (f *fakeChain) Judge(_ context.Context, _ llm.JudgeRequest) (*llm.JudgeResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeChain) Len() int { return 1 }

type fakePriors struct {
	hits  []model.FactCheckHit
	calls int
}

func (f *fakePriors) Lookup(_ context.Context, _ string) []model.FactCheckHit {
	f.calls++
	return f.hits
}

func newRuleJudge() *Judge {
	// No model, no priors: verdicts come from the signal rules alone
	return NewJudge(nil, nil, model.DefaultConfig())
}

func TestJudgeRuleSupported(t *testing.T) {
	j := newRuleJudge()
	sig := model.VerificationSignal{
		Supporting: 3, Contradicting: 0, Neutral: 1,
		MaxEntailment: 0.9, Quality: model.QualityTierHigh, Diversity: 0.6, UniqueDomains: 4,
	}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)

	if out.Verdict != model.VerdictSupported {
		t.Fatalf("verdict = %s, want supported", out.Verdict)
	}
	if out.Score < 50 || out.Score > 100 {
		t.Errorf("score = %d, want a decisive score in [50,100]", out.Score)
	}
	if out.Uncertainty != nil {
		t.Error("supported verdict should carry no uncertainty explanation")
	}
	if out.Rationale == "" {
		t.Error("rule verdict should still carry a rationale")
	}
	if len(out.Trail) == 0 {
		t.Error("enhanced explainability should produce a decision trail")
	}
}

func TestJudgeRuleContradicted(t *testing.T) {
	j := newRuleJudge()
	sig := model.VerificationSignal{
		Supporting: 0, Contradicting: 3, Neutral: 0,
		MaxContradiction: 0.85, Quality: model.QualityTierHigh, Diversity: 0.6,
	}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictContradicted {
		t.Fatalf("verdict = %s, want contradicted", out.Verdict)
	}
}

func TestJudgeMarginNotCleared(t *testing.T) {
	j := newRuleJudge()
	// 2 vs 1 is a margin of exactly 1: not strictly greater, so uncertain
	sig := model.VerificationSignal{
		Supporting: 2, Contradicting: 1, Neutral: 0,
		MaxEntailment: 0.9, MaxContradiction: 0.8, Quality: model.QualityTierHigh,
	}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictUncertain {
		t.Fatalf("verdict = %s, want uncertain when the margin is not cleared", out.Verdict)
	}
	if out.Uncertainty == nil || out.Uncertainty.Category != model.UncertaintyConflictingEvidence {
		t.Errorf("uncertainty = %+v, want conflicting_evidence", out.Uncertainty)
	}
}

func TestJudgeWeakEntailmentUncertain(t *testing.T) {
	j := newRuleJudge()
	// Comfortable count margin but no strong entailment anywhere
	sig := model.VerificationSignal{
		Supporting: 3, Contradicting: 0, Neutral: 0,
		MaxEntailment: 0.72, Quality: model.QualityTierMedium,
	}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictUncertain {
		t.Fatalf("verdict = %s, want uncertain without strong entailment", out.Verdict)
	}
}

func TestJudgeInsufficientEvidence(t *testing.T) {
	j := newRuleJudge()
	sig := model.VerificationSignal{Neutral: 1, Quality: model.QualityTierUnknown}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictUncertain {
		t.Fatalf("verdict = %s, want uncertain", out.Verdict)
	}
	if out.Uncertainty == nil || out.Uncertainty.Category != model.UncertaintyInsufficientEvidence {
		t.Errorf("uncertainty = %+v, want insufficient_evidence", out.Uncertainty)
	}
	if out.Score >= 50 {
		t.Errorf("score = %d, want below 50 for an uncertain verdict", out.Score)
	}
	if len(out.Uncertainty.Missing) == 0 {
		t.Error("uncertainty explanation should say what evidence is missing")
	}
}

func TestJudgeConfidenceMonotonic(t *testing.T) {
	j := newRuleJudge()

	base := model.VerificationSignal{
		Supporting: 3, Contradicting: 0, Neutral: 1,
		MaxEntailment: 0.80, Quality: model.QualityTierMedium, Diversity: 0.5,
	}

	stronger := base
	stronger.MaxEntailment = 0.95

	wider := base
	wider.Supporting = 4
	wider.Neutral = 0

	betterQuality := base
	betterQuality.Quality = model.QualityTierHigh

	baseScore := j.calibrate(model.VerdictSupported, base)
	for name, sig := range map[string]model.VerificationSignal{
		"stronger entailment": stronger,
		"wider margin":        wider,
		"higher quality":      betterQuality,
	} {
		if got := j.calibrate(model.VerdictSupported, sig); got < baseScore {
			t.Errorf("%s lowered the score: %d < %d", name, got, baseScore)
		}
	}
}

func TestJudgeAddedSupportOutweighsDiversityDrop(t *testing.T) {
	j := newRuleJudge()

	// Two supporting items from two ownership clusters
	base := model.VerificationSignal{
		Supporting: 2, Contradicting: 0, Neutral: 0,
		MaxEntailment: 0.9, Quality: model.QualityTierHigh, Diversity: 0.5,
	}

	// A third supporting item from one of the existing clusters: the margin
	// widens but concentration rises
	more := base
	more.Supporting = 3
	more.Diversity = 1.0 / 3.0

	baseScore := j.calibrate(model.VerdictSupported, base)
	moreScore := j.calibrate(model.VerdictSupported, more)
	if moreScore < baseScore {
		t.Errorf("added supporting evidence lowered the score: %d < %d", moreScore, baseScore)
	}
}

func TestJudgePriorShortCircuit(t *testing.T) {
	chain := &fakeChain{resp: &llm.JudgeResponse{Verdict: "supported", Confidence: 0.9, Rationale: "model"}}
	priors := &fakePriors{hits: []model.FactCheckHit{
		{Publisher: "FactCheckers Inc", Rating: "False"},
		{Publisher: "Verify Now", Rating: "Mostly False"},
	}}

	j := NewJudge(chain, priors, model.DefaultConfig())
	sig := model.VerificationSignal{Supporting: 3, MaxEntailment: 0.9, Quality: model.QualityTierHigh}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)

	if out.Verdict != model.VerdictContradicted {
		t.Fatalf("verdict = %s, want contradicted from prior fact-checks", out.Verdict)
	}
	if chain.calls != 0 {
		t.Error("prior short-circuit should skip the model call")
	}
	if len(out.PriorHits) != 2 {
		t.Errorf("judgment carries %d prior hits, want 2", len(out.PriorHits))
	}
	if out.Score < 60 {
		t.Errorf("score = %d, want confident prior verdicts above 60", out.Score)
	}
}

func TestJudgeSplitPriorsFallThrough(t *testing.T) {
	chain := &fakeChain{resp: &llm.JudgeResponse{Verdict: "supported", Rationale: "model says so"}}
	priors := &fakePriors{hits: []model.FactCheckHit{
		{Publisher: "A", Rating: "True"},
		{Publisher: "B", Rating: "False"},
	}}

	j := NewJudge(chain, priors, model.DefaultConfig())
	sig := model.VerificationSignal{Supporting: 3, MaxEntailment: 0.9, Quality: model.QualityTierHigh}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)

	if chain.calls != 1 {
		t.Error("split priors should fall through to the model")
	}
	if out.Verdict != model.VerdictSupported {
		t.Errorf("verdict = %s, want supported", out.Verdict)
	}
	if out.Rationale != "model says so" {
		t.Errorf("rationale = %q, want the model's rationale", out.Rationale)
	}
}

func TestJudgeModelCannotFlipRuleVerdict(t *testing.T) {
	chain := &fakeChain{resp: &llm.JudgeResponse{Verdict: "contradicted", Rationale: "confused model"}}

	j := NewJudge(chain, nil, model.DefaultConfig())
	sig := model.VerificationSignal{Supporting: 4, Contradicting: 0, MaxEntailment: 0.92, Quality: model.QualityTierHigh}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictSupported {
		t.Fatalf("verdict = %s, model must not flip a decisive rule verdict", out.Verdict)
	}
}

func TestJudgeModelMaySoftenToUncertain(t *testing.T) {
	chain := &fakeChain{resp: &llm.JudgeResponse{
		Verdict: "uncertain", Rationale: "evidence is about a different year",
		UncertaintyCategory: "time_sensitivity_mismatch", UncertaintySummary: "stale evidence",
	}}

	j := NewJudge(chain, nil, model.DefaultConfig())
	sig := model.VerificationSignal{Supporting: 4, Contradicting: 0, MaxEntailment: 0.92, Quality: model.QualityTierHigh}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictUncertain {
		t.Fatalf("verdict = %s, model may soften to uncertain", out.Verdict)
	}
	if out.Uncertainty == nil || out.Uncertainty.Category != model.UncertaintyTimeMismatch {
		t.Errorf("uncertainty = %+v, want the model's category", out.Uncertainty)
	}
	if out.Score >= 50 {
		t.Errorf("score = %d, softened verdicts must be rescored below 50", out.Score)
	}
}

func TestJudgeModelFailureFallsBack(t *testing.T) {
	chain := &fakeChain{err: errors.New("both providers down")}

	j := NewJudge(chain, nil, model.DefaultConfig())
	sig := model.VerificationSignal{Supporting: 3, Contradicting: 0, MaxEntailment: 0.9, Quality: model.QualityTierHigh}

	out := j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
	if out.Verdict != model.VerdictSupported {
		t.Fatalf("verdict = %s, want the rule fallback verdict", out.Verdict)
	}
	if out.Rationale == "" {
		t.Error("fallback verdict should still explain itself")
	}
}

// slowChain tracks the peak number of concurrent Judge calls
type slowChain struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *slowChain) Judge(_ context.Context, _ llm.JudgeRequest) (*llm.JudgeResponse, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()

	return &llm.JudgeResponse{Verdict: "uncertain", Rationale: "needs more evidence"}, nil
}

func (c *slowChain) Len() int { return 1 }

func TestJudgeBoundsConcurrentModelCalls(t *testing.T) {
	chain := &slowChain{}
	cfg := model.DefaultConfig()
	cfg.Judge.MaxConcurrent = 2

	j := NewJudge(chain, nil, cfg)
	sig := model.VerificationSignal{Supporting: 1, Neutral: 1, MaxEntailment: 0.72, Quality: model.QualityTierMedium}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Judge(context.Background(), model.Claim{Text: "c"}, sig, nil)
		}()
	}
	wg.Wait()

	if chain.peak == 0 {
		t.Fatal("model was never called")
	}
	if chain.peak > 2 {
		t.Errorf("peak concurrent model calls = %d, want at most 2", chain.peak)
	}
}

func TestRatingStance(t *testing.T) {
	tests := []struct {
		rating string
		want   model.Verdict
		ok     bool
	}{
		{"True", model.VerdictSupported, true},
		{"Mostly true", model.VerdictSupported, true},
		{"Accurate", model.VerdictSupported, true},
		{"False", model.VerdictContradicted, true},
		{"Pants on Fire!", model.VerdictContradicted, true},
		{"Misleading", model.VerdictContradicted, true},
		{"Not true", model.VerdictContradicted, true},
		{"Half True", "", false},
		{"Unproven", "", false},
	}
	for _, tt := range tests {
		got, ok := ratingStance(tt.rating)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ratingStance(%q) = (%q, %v), want (%q, %v)", tt.rating, got, ok, tt.want, tt.ok)
		}
	}
}
