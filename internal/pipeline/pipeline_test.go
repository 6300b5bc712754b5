package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/judge"
	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/temporal"
	"github.com/psokolov/verdex/internal/verify"
)

type fakeExtractor struct {
	claims []model.Claim
	calls  int32
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, maxClaims int) []model.Claim {
	atomic.AddInt32(&f.calls, 1)
	if len(f.claims) > maxClaims {
		return f.claims[:maxClaims]
	}
	return f.claims
}

type fakeRetriever struct {
	evidence map[string][]model.Evidence // keyed by claim text
	delay    time.Duration
	calls    int32
}

func (f *fakeRetriever) Retrieve(ctx context.Context, claim model.Claim) []model.Evidence {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.delay):
		}
	}
	return f.evidence[claim.Text]
}

type fakeVerifier struct {
	signals map[string]model.VerificationSignal
	calls   int32
}

func (f *fakeVerifier) Verify(_ context.Context, claim model.Claim, _ []model.Evidence) (model.VerificationSignal, []verify.PairResult) {
	atomic.AddInt32(&f.calls, 1)
	return f.signals[claim.Text], nil
}

type fakeJudge struct {
	judgments map[string]judge.Judgment
	calls     int32
}

func (f *fakeJudge) Judge(_ context.Context, claim model.Claim, _ model.VerificationSignal, _ []model.Evidence) judge.Judgment {
	atomic.AddInt32(&f.calls, 1)
	if j, ok := f.judgments[claim.Text]; ok {
		return j
	}
	return judge.Judgment{Verdict: model.VerdictUncertain, Score: 30, Rationale: "no judgment configured"}
}

type fakeStore struct {
	saved []*model.Check
}

func (f *fakeStore) SaveCheck(check *model.Check) error {
	f.saved = append(f.saved, check)
	return nil
}

func verifiableClaim(index int, text string) model.Claim {
	return model.Claim{
		Index:        index,
		Text:         text,
		Type:         model.ClaimTypeFactual,
		IsVerifiable: true,
	}
}

func newTestOrchestrator(ex *fakeExtractor, r *fakeRetriever, v *fakeVerifier, j *fakeJudge, c cache.Cache, store checkPersister, cfg *model.Config) *Orchestrator {
	analyzer := temporal.NewAnalyzerAt(cfg.Temporal, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	o := NewOrchestrator(ex, analyzer, r, v, j, c, store, nil, cfg)
	var counter int32
	o.newID = func() string {
		return fmt.Sprintf("check-%d", atomic.AddInt32(&counter, 1))
	}
	return o
}

func TestRunCompletesCheck(t *testing.T) {
	claim := verifiableClaim(0, "GDP grew 3 percent")
	ex := &fakeExtractor{claims: []model.Claim{claim}}
	r := &fakeRetriever{evidence: map[string][]model.Evidence{
		"GDP grew 3 percent": {{URL: "https://reuters.com/gdp", Domain: "reuters.com"}},
	}}
	v := &fakeVerifier{signals: map[string]model.VerificationSignal{
		"GDP grew 3 percent": {Supporting: 3, MaxEntailment: 0.9, Quality: model.QualityTierHigh},
	}}
	j := &fakeJudge{judgments: map[string]judge.Judgment{
		"GDP grew 3 percent": {Verdict: model.VerdictSupported, Score: 82, Rationale: "well supported"},
	}}
	store := &fakeStore{}

	o := newTestOrchestrator(ex, r, v, j, cache.Noop{}, store, model.DefaultConfig())
	check := o.Run(context.Background(), "GDP grew 3 percent.", "")

	if check.Status != model.CheckStatusCompleted {
		t.Fatalf("status = %s, want completed", check.Status)
	}
	if len(check.Claims) != 1 {
		t.Fatalf("got %d claims, want 1", len(check.Claims))
	}
	got := check.Claims[0]
	if got.Verdict != model.VerdictSupported || got.Score != 82 {
		t.Errorf("claim = %s/%d, want supported/82", got.Verdict, got.Score)
	}
	if len(got.DecisionTrail) == 0 {
		t.Error("enhanced explainability should attach a decision trail")
	}
	if len(check.Evidence[0]) != 1 {
		t.Errorf("evidence rows = %d, want 1", len(check.Evidence[0]))
	}
	if check.Transparency <= 0 {
		t.Errorf("transparency = %.2f, want > 0", check.Transparency)
	}
	if _, ok := check.StageTimings["extract"]; !ok {
		t.Error("stage timings missing extract")
	}
	if len(store.saved) != 1 {
		t.Fatalf("store received %d checks, want 1", len(store.saved))
	}
}

func TestRunOpinionShortCircuit(t *testing.T) {
	opinion := model.Claim{
		Index:               0,
		Text:                "I think chocolate is the best flavor",
		Type:                model.ClaimTypeOpinion,
		IsVerifiable:        false,
		VerifiabilityReason: "subjective opinion",
		Verdict:             model.VerdictNotFactCheckable,
		Rationale:           "subjective opinion",
	}
	ex := &fakeExtractor{claims: []model.Claim{opinion}}
	r := &fakeRetriever{}
	v := &fakeVerifier{}
	j := &fakeJudge{}

	o := newTestOrchestrator(ex, r, v, j, cache.Noop{}, nil, model.DefaultConfig())
	check := o.Run(context.Background(), "I think chocolate is the best flavor.", "")

	if got := check.Claims[0].Verdict; got != model.VerdictNotFactCheckable {
		t.Fatalf("verdict = %s, want not_fact_checkable", got)
	}
	if r.calls != 0 || v.calls != 0 || j.calls != 0 {
		t.Errorf("short-circuit leaked stage calls: retrieve=%d verify=%d judge=%d", r.calls, v.calls, j.calls)
	}
	if len(check.Evidence) != 0 {
		t.Errorf("got %d evidence entries, want none", len(check.Evidence))
	}
}

func TestRunAssemblesByClaimIndex(t *testing.T) {
	claims := []model.Claim{
		verifiableClaim(0, "first claim"),
		verifiableClaim(1, "second claim"),
		verifiableClaim(2, "third claim"),
	}
	ex := &fakeExtractor{claims: claims}
	r := &fakeRetriever{evidence: map[string][]model.Evidence{
		"first claim":  {{URL: "https://a.com/1", Domain: "a.com"}},
		"second claim": {{URL: "https://b.com/1", Domain: "b.com"}},
		"third claim":  {{URL: "https://c.com/1", Domain: "c.com"}},
	}, delay: 5 * time.Millisecond}
	v := &fakeVerifier{}
	j := &fakeJudge{judgments: map[string]judge.Judgment{
		"first claim":  {Verdict: model.VerdictSupported, Score: 80},
		"second claim": {Verdict: model.VerdictContradicted, Score: 75},
		"third claim":  {Verdict: model.VerdictUncertain, Score: 30},
	}}

	o := newTestOrchestrator(ex, r, v, j, cache.Noop{}, nil, model.DefaultConfig())
	check := o.Run(context.Background(), "three claims worth of content", "")

	if len(check.Claims) != 3 {
		t.Fatalf("got %d claims, want 3", len(check.Claims))
	}
	wantVerdicts := []model.Verdict{model.VerdictSupported, model.VerdictContradicted, model.VerdictUncertain}
	for i, want := range wantVerdicts {
		if check.Claims[i].Index != i {
			t.Errorf("claim at position %d has index %d", i, check.Claims[i].Index)
		}
		if check.Claims[i].Verdict != want {
			t.Errorf("claim %d verdict = %s, want %s", i, check.Claims[i].Verdict, want)
		}
	}
	for i, domain := range []string{"a.com", "b.com", "c.com"} {
		items := check.Evidence[i]
		if len(items) != 1 || items[0].Domain != domain {
			t.Errorf("evidence for claim %d = %+v, want one item from %s", i, items, domain)
		}
	}
}

func TestRunCheckTimeout(t *testing.T) {
	claims := []model.Claim{
		verifiableClaim(0, "slow claim"),
		verifiableClaim(1, "another slow claim"),
	}
	ex := &fakeExtractor{claims: claims}
	r := &fakeRetriever{delay: 500 * time.Millisecond}
	v := &fakeVerifier{}
	j := &fakeJudge{}

	cfg := model.DefaultConfig()
	cfg.Pipeline.CheckTimeout = 30 * time.Millisecond

	o := newTestOrchestrator(ex, r, v, j, cache.Noop{}, nil, cfg)
	check := o.Run(context.Background(), "slow content", "")

	if check.Status != model.CheckStatusCompleted {
		t.Fatalf("status = %s, timeout must not fail the check", check.Status)
	}
	for _, claim := range check.Claims {
		if claim.Verdict != model.VerdictUncertain {
			t.Errorf("claim %d verdict = %s, want uncertain", claim.Index, claim.Verdict)
		}
		if claim.Rationale != "processing timeout" {
			t.Errorf("claim %d rationale = %q, want processing timeout", claim.Index, claim.Rationale)
		}
	}
	if j.calls != 0 {
		t.Errorf("judge ran %d times on timed-out claims", j.calls)
	}
}

func TestRunCacheFirst(t *testing.T) {
	claim := verifiableClaim(0, "cached claim")
	ex := &fakeExtractor{claims: []model.Claim{claim}}
	r := &fakeRetriever{}
	v := &fakeVerifier{}
	j := &fakeJudge{judgments: map[string]judge.Judgment{
		"cached claim": {Verdict: model.VerdictSupported, Score: 70, Rationale: "fine"},
	}}

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	o := newTestOrchestrator(ex, r, v, j, store, nil, model.DefaultConfig())

	first := o.Run(context.Background(), "the same content", "")
	second := o.Run(context.Background(), "the same content", "")

	if atomic.LoadInt32(&ex.calls) != 1 {
		t.Fatalf("extractor ran %d times, want 1 with a warm result cache", ex.calls)
	}
	if second.ID != first.ID {
		t.Errorf("cached run returned a different check: %s vs %s", second.ID, first.ID)
	}
	if second.Claims[0].Verdict != first.Claims[0].Verdict {
		t.Error("cached run changed the verdict")
	}
}

func TestRunPriorHitsBecomeEvidence(t *testing.T) {
	claim := verifiableClaim(0, "previously checked claim")
	ex := &fakeExtractor{claims: []model.Claim{claim}}
	r := &fakeRetriever{}
	v := &fakeVerifier{}
	j := &fakeJudge{judgments: map[string]judge.Judgment{
		"previously checked claim": {
			Verdict: model.VerdictContradicted, Score: 90, Rationale: "prior fact-checks",
			PriorHits: []model.FactCheckHit{
				{Publisher: "FactCheckers Inc", Rating: "False", URL: "https://factcheckers.example/review/1"},
			},
		},
	}}

	o := newTestOrchestrator(ex, r, v, j, cache.Noop{}, nil, model.DefaultConfig())
	check := o.Run(context.Background(), "previously checked claim", "")

	items := check.Evidence[0]
	if len(items) != 1 {
		t.Fatalf("got %d evidence items, want the prior hit", len(items))
	}
	if !items[0].IsPriorFactCheck || items[0].FactCheckPublisher != "FactCheckers Inc" {
		t.Errorf("prior hit not surfaced as evidence: %+v", items[0])
	}
}

func TestSafetyRisk(t *testing.T) {
	check := &model.Check{Claims: []model.Claim{
		{Verdict: model.VerdictContradicted, Score: 90},
		{Verdict: model.VerdictSupported, Score: 80},
	}}
	got := safetyRisk(check)
	if diff := got - 0.45; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("safetyRisk = %.3f, want 0.45", got)
	}
	if safetyRisk(&model.Check{}) != 0 {
		t.Error("empty check should carry zero safety risk")
	}
}
