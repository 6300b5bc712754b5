package evidence

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/embed"
	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/search"
	"github.com/psokolov/verdex/internal/temporal"
	"golang.org/x/sync/errgroup"
)

// Searcher is the slice of the search provider the retriever needs
type Searcher interface {
	Search(ctx context.Context, query string, filter *search.DateFilter) []model.SearchResult
}

// SnippetFetcher reduces one source URL to its most relevant passage
type SnippetFetcher interface {
	Snippet(ctx context.Context, rawURL, claimText string) (string, bool)
}

// Retriever produces a ranked, deduplicated, diversity-capped evidence set
// for one claim. Single-source failures are skipped, never fatal: an empty
// result is a valid (if weak) retrieval surfaced downstream as
// insufficient evidence.
type Retriever struct {
	searcher  Searcher
	fetcher   SnippetFetcher
	embedder  embed.Embedder
	cred      *CredibilityClassifier
	ownership *OwnershipTable
	temporal  *temporal.Analyzer

	retrievalCfg model.RetrievalConfig
	fetchWorkers int
	temporalFilter bool
	verbose      bool
	now          func() time.Time
}

// NewRetriever wires the retrieval stage from configuration
func NewRetriever(searcher Searcher, fetcher SnippetFetcher, embedder embed.Embedder, analyzer *temporal.Analyzer, cfg *model.Config) *Retriever {
	return &Retriever{
		searcher:       searcher,
		fetcher:        fetcher,
		embedder:       embedder,
		cred:           NewCredibilityClassifier(&cfg.Credibility),
		ownership:      NewOwnershipTable(&cfg.Ownership),
		temporal:       analyzer,
		retrievalCfg:   cfg.Retrieval,
		fetchWorkers:   cfg.Concurrency.FetchWorkers,
		temporalFilter: cfg.Features.TemporalFiltering,
		verbose:        cfg.Output.Verbose,
		now:            time.Now,
	}
}

// Retrieve runs the full retrieval pipeline for one claim
func (r *Retriever) Retrieve(ctx context.Context, claim model.Claim) []model.Evidence {
	// 1. Query construction, scoped to the claim's window when time-sensitive
	query := BuildQuery(claim.Text)

	var filter *search.DateFilter
	if claim.IsTimeSensitive {
		if maxAge := r.temporal.MaxAge(claim.TimeReference); maxAge > 0 {
			filter = &search.DateFilter{After: r.now().Add(-maxAge)}
		}
	}

	// 2. Search + fetch
	results := r.searcher.Search(ctx, query, filter)
	if len(results) == 0 {
		return nil
	}

	candidates := r.fetchSnippets(ctx, results, claim.Text)
	if len(candidates) == 0 {
		return nil
	}

	// 3. Embedding-similarity ranking
	r.scoreSimilarity(ctx, claim.Text, candidates)

	// 4. Credibility + recency weighting
	for i := range candidates {
		candidates[i].Credibility = r.cred.Score(candidates[i].URL)
		candidates[i].Recency = r.temporal.RecencyScore(candidates[i].Published)
		candidates[i].TemporalScore = r.temporal.TemporalScore(claim.TimeReference, candidates[i].Published)
		candidates[i].FinalScore = r.retrievalCfg.SimilarityWeight*candidates[i].Similarity +
			r.retrievalCfg.CredibilityWeight*candidates[i].Credibility +
			r.retrievalCfg.RecencyWeight*candidates[i].Recency
	}

	// 5. Deduplication (exact hash, then near-duplicate syndication)
	deduped := Deduplicate(candidates, r.retrievalCfg.NearDupThreshold)

	// 6. Source-independence enrichment
	r.ownership.Enrich(deduped)

	// 7. Domain/diversity capping
	capped := applyDomainCap(deduped, r.retrievalCfg)

	// 8. Temporal filtering for time-sensitive claims
	if r.temporalFilter && claim.IsTimeSensitive {
		capped = r.filterStale(claim.TimeReference, capped)
	}

	return capped
}

// Diversity exposes the ownership diversity score for an evidence set
func (r *Retriever) Diversity(items []model.Evidence) float64 {
	return r.ownership.Diversity(items)
}

// fetchSnippets fetches each candidate source concurrently under the fetch
// worker bound. Failed sources are skipped.
func (r *Retriever) fetchSnippets(ctx context.Context, results []model.SearchResult, claimText string) []model.Evidence {
	candidates := make([]model.Evidence, len(results))
	found := make([]bool, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fetchWorkers)

	for i, res := range results {
		g.Go(func() error {
			snippet, ok := r.fetcher.Snippet(gctx, res.URL, claimText)
			if !ok {
				// Fall back to the search result's own snippet when the page
				// itself is unavailable
				if res.Snippet == "" {
					return nil
				}
				snippet = res.Snippet
			}

			candidates[i] = model.Evidence{
				URL:         res.URL,
				Domain:      DomainOf(res.URL),
				Snippet:     snippet,
				Published:   res.Published,
				ContentHash: cache.ContentHash(snippet),
			}
			found[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var out []model.Evidence
	for i := range candidates {
		if found[i] && candidates[i].Domain != "" {
			out = append(out, candidates[i])
		}
	}
	return out
}

// scoreSimilarity embeds the claim and snippets in one batch and assigns
// cosine similarity. If the embedding provider is down the stage degrades
// to a neutral similarity instead of dropping every source.
func (r *Retriever) scoreSimilarity(ctx context.Context, claimText string, candidates []model.Evidence) {
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, claimText)
	for _, c := range candidates {
		texts = append(texts, c.Snippet)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		if r.verbose {
			fmt.Fprintf(os.Stderr, "Warning: embedding failed, using neutral similarity: %v\n", err)
		}
		for i := range candidates {
			candidates[i].Similarity = 0.5
		}
		return
	}

	claimVec := vectors[0]
	for i := range candidates {
		candidates[i].Similarity = embed.Cosine(claimVec, vectors[i+1])
	}
}

// filterStale drops evidence outside the claim's age window; undated
// snippets get the benefit of the doubt and stay.
func (r *Retriever) filterStale(ref model.TimeReference, items []model.Evidence) []model.Evidence {
	var out []model.Evidence
	for _, item := range items {
		if r.temporal.WithinWindow(ref, item.Published) {
			out = append(out, item)
		}
	}
	return out
}

// applyDomainCap enforces the per-domain contribution cap, then truncates
// to the target count by final score. Ordering is deterministic: score
// descending, URL ascending on ties.
func applyDomainCap(items []model.Evidence, cfg model.RetrievalConfig) []model.Evidence {
	if len(items) == 0 {
		return items
	}

	limit := int(math.Ceil(float64(cfg.TargetCount) * cfg.MaxDomainRatio))
	if limit < cfg.DomainCapMin {
		limit = cfg.DomainCapMin
	}
	if cfg.DomainCapMax > 0 && limit > cfg.DomainCapMax {
		limit = cfg.DomainCapMax
	}

	sorted := make([]model.Evidence, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FinalScore != sorted[j].FinalScore {
			return sorted[i].FinalScore > sorted[j].FinalScore
		}
		return sorted[i].URL < sorted[j].URL
	})

	perDomain := make(map[string]int)
	var out []model.Evidence
	for _, item := range sorted {
		if perDomain[item.Domain] >= limit {
			continue
		}
		perDomain[item.Domain]++
		out = append(out, item)
		if len(out) >= cfg.TargetCount {
			break
		}
	}

	return out
}
