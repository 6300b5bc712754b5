package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/evidence"
	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/nli"
)

// Stance is the relation assigned to one claim/evidence pair
type Stance string

const (
	StanceSupporting    Stance = "supporting"
	StanceContradicting Stance = "contradicting"
	StanceNeutral       Stance = "neutral"
)

// PairResult pairs one evidence item with its entailment scores and stance
type PairResult struct {
	EvidenceIndex int            `json:"evidence_index"`
	Scores        nli.PairScores `json:"scores"`
	Stance        Stance         `json:"stance"`
}

// Verifier runs claim/evidence entailment and aggregates pair results into a
// verification signal. It is deterministic for a fixed classifier: the same
// claim and evidence set always produce the same signal.
type Verifier struct {
	classifier nli.Classifier
	cache      cache.Cache
	cfg        model.VerifyConfig
	nliTTL     time.Duration
	verbose    bool
}

// NewVerifier wires the verification stage from configuration
func NewVerifier(classifier nli.Classifier, store cache.Cache, cfg *model.Config) *Verifier {
	return &Verifier{
		classifier: classifier,
		cache:      store,
		cfg:        cfg.Verify,
		nliTTL:     cfg.Cache.NLITTL,
		verbose:    cfg.Output.Verbose,
	}
}

// Verify scores every claim/evidence pair and aggregates the results.
// Evidence the classifier could not score is counted neutral so a flaky
// NLI backend weakens the signal instead of failing the claim.
func (v *Verifier) Verify(ctx context.Context, claim model.Claim, items []model.Evidence) (model.VerificationSignal, []PairResult) {
	results := make([]PairResult, len(items))
	for i := range results {
		results[i] = PairResult{EvidenceIndex: i, Stance: StanceNeutral}
	}

	claimHash := cache.ContentHash(claim.Text)

	// Resolve cached pairs first, then batch the misses
	var missIdx []int
	var missPairs []nli.Pair
	for i, item := range items {
		if scores, ok := v.cachedScores(claimHash, item); ok {
			results[i].Scores = scores
			results[i].Stance = v.stance(scores)
			continue
		}
		missIdx = append(missIdx, i)
		missPairs = append(missPairs, nli.Pair{Premise: item.Snippet, Hypothesis: claim.Text})
	}

	batch := v.cfg.BatchSize
	if batch <= 0 {
		batch = len(missPairs)
	}
	for start := 0; start < len(missPairs); start += batch {
		end := start + batch
		if end > len(missPairs) {
			end = len(missPairs)
		}

		scores, err := v.classifier.ClassifyPairs(ctx, missPairs[start:end])
		if err != nil {
			if v.verbose {
				fmt.Fprintf(os.Stderr, "Warning: NLI batch failed, counting %d pairs neutral: %v\n", end-start, err)
			}
			continue
		}

		for j, s := range scores {
			i := missIdx[start+j]
			results[i].Scores = s
			results[i].Stance = v.stance(s)
			v.storeScores(claimHash, items[i], s)
		}
	}

	return v.aggregate(results, items), results
}

// stance applies the entailment threshold to one pair's scores. A pair
// counts as supporting only when entailment clears the threshold and beats
// contradiction; the mirror rule assigns contradicting.
func (v *Verifier) stance(s nli.PairScores) Stance {
	switch {
	case s.Entailment > v.cfg.EntailmentThreshold && s.Entailment > s.Contradiction:
		return StanceSupporting
	case s.Contradiction > v.cfg.EntailmentThreshold && s.Contradiction > s.Entailment:
		return StanceContradicting
	default:
		return StanceNeutral
	}
}

func (v *Verifier) aggregate(results []PairResult, items []model.Evidence) model.VerificationSignal {
	var sig model.VerificationSignal

	var credSum float64
	var credCount int
	for i, r := range results {
		switch r.Stance {
		case StanceSupporting:
			sig.Supporting++
			credSum += items[i].Credibility
			credCount++
		case StanceContradicting:
			sig.Contradicting++
			credSum += items[i].Credibility
			credCount++
		default:
			sig.Neutral++
		}
		if r.Scores.Entailment > sig.MaxEntailment {
			sig.MaxEntailment = r.Scores.Entailment
		}
		if r.Scores.Contradiction > sig.MaxContradiction {
			sig.MaxContradiction = r.Scores.Contradiction
		}
	}

	sig.Quality = qualityTier(credSum, credCount)
	sig.Diversity = clusterDiversity(items)
	sig.UniqueDomains = evidence.UniqueDomains(items)

	return sig
}

// qualityTier buckets the average credibility of the evidence that actually
// moved the signal. No decisive evidence means quality is unknown.
func qualityTier(credSum float64, credCount int) model.QualityTier {
	if credCount == 0 {
		return model.QualityTierUnknown
	}
	avg := credSum / float64(credCount)
	switch {
	case avg >= 0.75:
		return model.QualityTierHigh
	case avg >= 0.5:
		return model.QualityTierMedium
	default:
		return model.QualityTierLow
	}
}

// clusterDiversity recomputes ownership diversity from the enriched
// evidence set: 1 minus the largest cluster's share.
func clusterDiversity(items []model.Evidence) float64 {
	if len(items) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, item := range items {
		cluster := item.OwnershipCluster
		if cluster == "" {
			cluster = item.Domain
		}
		counts[cluster]++
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	return 1 - float64(max)/float64(len(items))
}

func (v *Verifier) cachedScores(claimHash string, item model.Evidence) (nli.PairScores, bool) {
	if v.cache == nil {
		return nli.PairScores{}, false
	}
	data, ok := v.cache.Get(v.pairKey(claimHash, item))
	if !ok {
		return nli.PairScores{}, false
	}
	var scores nli.PairScores
	if err := json.Unmarshal(data, &scores); err != nil {
		return nli.PairScores{}, false
	}
	return scores, true
}

func (v *Verifier) storeScores(claimHash string, item model.Evidence, scores nli.PairScores) {
	if v.cache == nil {
		return
	}
	data, err := json.Marshal(scores)
	if err != nil {
		return
	}
	_ = v.cache.Set(v.pairKey(claimHash, item), data, v.nliTTL)
}

func (v *Verifier) pairKey(claimHash string, item model.Evidence) string {
	evidenceHash := item.ContentHash
	if evidenceHash == "" {
		evidenceHash = cache.ContentHash(item.Snippet)
	}
	return cache.Key(cache.CategoryNLI, claimHash, evidenceHash)
}
