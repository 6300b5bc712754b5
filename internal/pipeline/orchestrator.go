// Package pipeline sequences the verification stages for one check:
// extract, classify, then per-claim retrieve/verify/judge under bounded
// concurrency. Partial failure is a first-class outcome; a single claim
// failing or timing out never fails its siblings or the check.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/explain"
	"github.com/psokolov/verdex/internal/judge"
	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/temporal"
	"github.com/psokolov/verdex/internal/verify"
)

// Stage collaborators, narrowed to what the orchestrator calls. Fakes
// implement these in tests.
type (
	claimExtractor interface {
		Extract(ctx context.Context, content string, maxClaims int) []model.Claim
	}
	evidenceRetriever interface {
		Retrieve(ctx context.Context, claim model.Claim) []model.Evidence
	}
	claimVerifier interface {
		Verify(ctx context.Context, claim model.Claim, items []model.Evidence) (model.VerificationSignal, []verify.PairResult)
	}
	verdictJudge interface {
		Judge(ctx context.Context, claim model.Claim, sig model.VerificationSignal, items []model.Evidence) judge.Judgment
	}
	checkPersister interface {
		SaveCheck(check *model.Check) error
	}
)

// Orchestrator runs the verification pipeline for submitted content
type Orchestrator struct {
	extractor claimExtractor
	temporal  *temporal.Analyzer
	retriever evidenceRetriever
	verifier  claimVerifier
	judge     verdictJudge
	cache     cache.Cache
	store     checkPersister // nil disables persistence
	archiver  *Archiver      // nil disables citation archival
	cfg       *model.Config

	now   func() time.Time
	newID func() string
}

// NewOrchestrator wires the pipeline. store and archiver may be nil.
func NewOrchestrator(extractor claimExtractor, analyzer *temporal.Analyzer, retriever evidenceRetriever,
	verifier claimVerifier, j verdictJudge, c cache.Cache, store checkPersister, archiver *Archiver,
	cfg *model.Config) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		temporal:  analyzer,
		retriever: retriever,
		verifier:  verifier,
		judge:     j,
		cache:     c,
		store:     store,
		archiver:  archiver,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run verifies one piece of content end to end and returns the completed
// check. Run never returns an error: irrecoverable failures produce a check
// in status failed, and per-claim failures produce uncertain claims.
func (o *Orchestrator) Run(ctx context.Context, content, sourceURL string) *model.Check {
	if cached := o.cachedResult(content); cached != nil {
		return cached
	}

	check := &model.Check{
		ID:           o.newID(),
		Status:       model.CheckStatusPending,
		Content:      content,
		SourceURL:    sourceURL,
		CreatedAt:    o.now(),
		Evidence:     make(map[int][]model.Evidence),
		StageTimings: make(map[string]time.Duration),
	}

	if o.cfg.Pipeline.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Pipeline.CheckTimeout)
		defer cancel()
	}

	check.Status = model.CheckStatusRunning
	extractStart := o.now()
	claims := o.extractor.Extract(ctx, content, o.cfg.Pipeline.MaxClaims)
	check.StageTimings["extract"] = o.now().Sub(extractStart)

	for i := range claims {
		o.temporal.Annotate(&claims[i])
	}

	o.processClaims(ctx, check, claims)

	check.Transparency = explain.Transparency(check)
	check.SafetyRisk = safetyRisk(check)
	check.Status = model.CheckStatusCompleted
	check.UpdatedAt = o.now()

	o.storeResult(check)
	o.archiveCitations(check)

	return check
}

// processClaims runs the verifiable claims through retrieve/verify/judge
// with bounded concurrency. Results land in the check by claim index, not
// completion order.
func (o *Orchestrator) processClaims(ctx context.Context, check *model.Check, claims []model.Claim) {
	results := make([]model.Claim, len(claims))
	evidences := make([][]model.Evidence, len(claims))

	var timingMu sync.Mutex
	addTiming := func(stage string, d time.Duration) {
		timingMu.Lock()
		check.StageTimings[stage] += d
		timingMu.Unlock()
	}

	g := errgroup.Group{}
	workers := o.cfg.Concurrency.ClaimWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, claim := range claims {
		g.Go(func() error {
			results[i], evidences[i] = o.processClaim(ctx, claim, addTiming)
			return nil
		})
	}
	_ = g.Wait()

	check.Claims = results
	for i, items := range evidences {
		if len(items) > 0 {
			check.Evidence[results[i].Index] = items
		}
	}
}

func (o *Orchestrator) processClaim(ctx context.Context, claim model.Claim, addTiming func(string, time.Duration)) (model.Claim, []model.Evidence) {
	// Non-verifiable claims already carry their terminal verdict from
	// classification; retrieval, verification and judgment never run.
	if !claim.IsVerifiable || claim.Verdict == model.VerdictNotFactCheckable {
		if o.cfg.Features.EnhancedExplainability {
			claim.DecisionTrail = explain.Trail(claim, 0, nil)
		}
		return claim, nil
	}

	if ctx.Err() != nil {
		return o.timedOut(claim), nil
	}

	start := o.now()
	items := o.retriever.Retrieve(ctx, claim)
	addTiming("retrieve", o.now().Sub(start))
	if ctx.Err() != nil {
		return o.timedOut(claim), nil
	}

	start = o.now()
	sig, _ := o.verifier.Verify(ctx, claim, items)
	addTiming("verify", o.now().Sub(start))
	if ctx.Err() != nil {
		return o.timedOut(claim), nil
	}

	start = o.now()
	judgment := o.judge.Judge(ctx, claim, sig, items)
	addTiming("judge", o.now().Sub(start))
	if ctx.Err() != nil {
		return o.timedOut(claim), nil
	}

	claim.Verdict = judgment.Verdict
	claim.Score = judgment.Score
	claim.Rationale = judgment.Rationale
	claim.Uncertainty = judgment.Uncertainty
	if o.cfg.Features.EnhancedExplainability {
		claim.DecisionTrail = explain.Trail(claim, len(items), judgment.Trail)
	}

	items = append(items, priorHitsAsEvidence(judgment.PriorHits)...)

	return claim, items
}

// timedOut marks a claim the check-level timeout cut off
func (o *Orchestrator) timedOut(claim model.Claim) model.Claim {
	claim.Verdict = model.VerdictUncertain
	claim.Rationale = "processing timeout"
	claim.Uncertainty = &model.UncertaintyExplanation{
		Category: model.UncertaintyInsufficientEvidence,
		Summary:  "Verification did not finish within the check's time budget.",
	}
	return claim
}

// cachedResult serves a full prior result for identical content
func (o *Orchestrator) cachedResult(content string) *model.Check {
	if o.cache == nil || !o.cfg.Cache.Enabled {
		return nil
	}
	data, ok := o.cache.Get(o.resultKey(content))
	if !ok {
		return nil
	}
	var check model.Check
	if err := json.Unmarshal(data, &check); err != nil {
		return nil
	}
	return &check
}

func (o *Orchestrator) storeResult(check *model.Check) {
	if o.cache != nil && o.cfg.Cache.Enabled {
		if data, err := json.Marshal(check); err == nil {
			_ = o.cache.Set(o.resultKey(check.Content), data, o.cfg.Cache.ResultTTL)
		}
	}

	if o.store != nil {
		if err := o.store.SaveCheck(check); err != nil && o.cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Warning: persisting check %s failed: %v\n", check.ID, err)
		}
	}
}

func (o *Orchestrator) resultKey(content string) string {
	return cache.Key(cache.CategoryResult, cache.ContentHash(content))
}

func (o *Orchestrator) archiveCitations(check *model.Check) {
	if o.archiver == nil || !o.cfg.Features.ArchiveCitations {
		return
	}
	seen := make(map[string]bool)
	for _, items := range check.Evidence {
		for _, item := range items {
			if !seen[item.URL] {
				seen[item.URL] = true
				o.archiver.Enqueue(item.URL)
			}
		}
	}
}

func priorHitsAsEvidence(hits []model.FactCheckHit) []model.Evidence {
	out := make([]model.Evidence, 0, len(hits))
	for _, hit := range hits {
		item := model.Evidence{
			URL:                hit.URL,
			Snippet:            fmt.Sprintf("Fact-check by %s: %s", hit.Publisher, hit.Rating),
			Published:          hit.Date,
			IsPriorFactCheck:   true,
			FactCheckPublisher: hit.Publisher,
			FactCheckRating:    hit.Rating,
		}
		out = append(out, item)
	}
	return out
}

// safetyRisk is a coarse heuristic for harmful-misinformation exposure: the
// confidence-weighted share of claims the evidence contradicts.
func safetyRisk(check *model.Check) float64 {
	if len(check.Claims) == 0 {
		return 0
	}
	var risk float64
	for _, claim := range check.Claims {
		if claim.Verdict == model.VerdictContradicted {
			risk += float64(claim.Score) / 100
		}
	}
	return risk / float64(len(check.Claims))
}
