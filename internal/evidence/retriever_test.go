package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/search"
	"github.com/psokolov/verdex/internal/temporal"
)

type fakeSearcher struct {
	results    []model.SearchResult
	lastQuery  string
	lastFilter *search.DateFilter
}

func (s *fakeSearcher) Search(_ context.Context, query string, filter *search.DateFilter) []model.SearchResult {
	s.lastQuery = query
	s.lastFilter = filter
	return s.results
}

type fakeFetcher struct {
	snippets map[string]string // URL -> snippet; missing means fetch failure
}

func (f *fakeFetcher) Snippet(_ context.Context, rawURL, _ string) (string, bool) {
	s, ok := f.snippets[rawURL]
	return s, ok
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors[text], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = []float32{0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func newTestRetriever(searcher *fakeSearcher, fetcher *fakeFetcher, embedder *fakeEmbedder, cfg *model.Config) *Retriever {
	analyzer := temporal.NewAnalyzerAt(cfg.Temporal, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	r := NewRetriever(searcher, fetcher, embedder, analyzer, cfg)
	r.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestRetrieveRanksAndScores(t *testing.T) {
	claim := model.Claim{Text: "GDP grew 3 percent in the second quarter"}

	searcher := &fakeSearcher{results: []model.SearchResult{
		{URL: "https://reuters.com/gdp"},
		{URL: "https://example.com/blog"},
	}}
	fetcher := &fakeFetcher{snippets: map[string]string{
		"https://reuters.com/gdp":  "Official figures show GDP grew 3 percent in the second quarter.",
		"https://example.com/blog": "A post about gardening and weekend recipes.",
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		claim.Text: {1, 0},
		"Official figures show GDP grew 3 percent in the second quarter.": {1, 0},
		"A post about gardening and weekend recipes.":                     {0, 1},
	}}

	r := newTestRetriever(searcher, fetcher, embedder, model.DefaultConfig())
	out := r.Retrieve(context.Background(), claim)

	if len(out) != 2 {
		t.Fatalf("expected 2 evidence items, got %d", len(out))
	}
	if out[0].URL != "https://reuters.com/gdp" {
		t.Errorf("highest-scored item is %s, want the relevant high-credibility source", out[0].URL)
	}
	if out[0].Similarity <= out[1].Similarity {
		t.Error("relevant snippet should out-score the irrelevant one")
	}
	if out[0].Credibility != 0.9 {
		t.Errorf("reuters credibility = %.2f, want 0.9", out[0].Credibility)
	}
	if out[0].FinalScore <= out[1].FinalScore {
		t.Error("final scores not ordered")
	}
	for _, item := range out {
		if item.ContentHash == "" {
			t.Errorf("%s missing content hash", item.URL)
		}
		if item.Domain == "" {
			t.Errorf("%s missing domain", item.URL)
		}
	}
	if searcher.lastQuery == "" {
		t.Error("no query sent to search provider")
	}
	if searcher.lastFilter != nil {
		t.Error("non-time-sensitive claim should not carry a date filter")
	}
}

func TestRetrieveEmptySearch(t *testing.T) {
	r := newTestRetriever(&fakeSearcher{}, &fakeFetcher{}, &fakeEmbedder{}, model.DefaultConfig())
	out := r.Retrieve(context.Background(), model.Claim{Text: "GDP grew 3 percent"})
	if len(out) != 0 {
		t.Fatalf("expected empty evidence for empty search, got %d items", len(out))
	}
}

func TestRetrieveSkipsFailedFetches(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{
		{URL: "https://good.com/a"},
		{URL: "https://dead.com/b"}, // fetch fails and search gave no snippet
	}}
	fetcher := &fakeFetcher{snippets: map[string]string{
		"https://good.com/a": "The policy took effect in March.",
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}

	r := newTestRetriever(searcher, fetcher, embedder, model.DefaultConfig())
	out := r.Retrieve(context.Background(), model.Claim{Text: "the policy took effect in March"})

	if len(out) != 1 {
		t.Fatalf("expected 1 item after skipping failed fetch, got %d", len(out))
	}
	if out[0].URL != "https://good.com/a" {
		t.Errorf("kept %s, want the fetchable source", out[0].URL)
	}
}

func TestRetrieveFallsBackToSearchSnippet(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{
		{URL: "https://paywalled.com/a", Snippet: "GDP grew 3 percent, the office said."},
	}}
	fetcher := &fakeFetcher{snippets: map[string]string{}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}

	r := newTestRetriever(searcher, fetcher, embedder, model.DefaultConfig())
	out := r.Retrieve(context.Background(), model.Claim{Text: "GDP grew 3 percent"})

	if len(out) != 1 {
		t.Fatalf("expected the search snippet fallback to keep the source, got %d items", len(out))
	}
	if out[0].Snippet != "GDP grew 3 percent, the office said." {
		t.Errorf("snippet = %q, want the search result snippet", out[0].Snippet)
	}
}

func TestRetrieveEmbedFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{{URL: "https://a.com/1"}}}
	fetcher := &fakeFetcher{snippets: map[string]string{"https://a.com/1": "Some evidence text here."}}
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}

	r := newTestRetriever(searcher, fetcher, embedder, model.DefaultConfig())
	out := r.Retrieve(context.Background(), model.Claim{Text: "some claim"})

	if len(out) != 1 {
		t.Fatalf("embedding failure should degrade, not drop evidence; got %d items", len(out))
	}
	if out[0].Similarity != 0.5 {
		t.Errorf("similarity = %.2f, want neutral 0.5 on embed failure", out[0].Similarity)
	}
}

func TestRetrieveTimeSensitiveClaim(t *testing.T) {
	old := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)

	searcher := &fakeSearcher{results: []model.SearchResult{
		{URL: "https://a.com/stale", Published: &old},
		{URL: "https://a.com/fresh", Published: &fresh},
		{URL: "https://b.com/undated"},
	}}
	fetcher := &fakeFetcher{snippets: map[string]string{
		"https://a.com/stale":   "Unemployment was rising at the time.",
		"https://a.com/fresh":   "Unemployment fell recently, new figures show.",
		"https://b.com/undated": "Unemployment trends remain disputed.",
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}

	r := newTestRetriever(searcher, fetcher, embedder, model.DefaultConfig())
	out := r.Retrieve(context.Background(), model.Claim{
		Text:            "unemployment fell recently",
		TimeReference:   model.TimeReferenceRecent,
		IsTimeSensitive: true,
	})

	if searcher.lastFilter == nil {
		t.Fatal("time-sensitive claim should send a date filter to search")
	}
	for _, item := range out {
		if item.URL == "https://a.com/stale" {
			t.Error("stale evidence survived the temporal filter")
		}
	}
	var undatedKept bool
	for _, item := range out {
		if item.URL == "https://b.com/undated" {
			undatedKept = true
		}
	}
	if !undatedKept {
		t.Error("undated evidence should get the benefit of the doubt")
	}
}

func TestApplyDomainCap(t *testing.T) {
	cfg := model.DefaultConfig().Retrieval // target 5, ratio 0.4, cap in [2,3]

	items := []model.Evidence{
		{URL: "https://dailymail.co.uk/1", Domain: "dailymail.co.uk", FinalScore: 0.95},
		{URL: "https://dailymail.co.uk/2", Domain: "dailymail.co.uk", FinalScore: 0.90},
		{URL: "https://dailymail.co.uk/3", Domain: "dailymail.co.uk", FinalScore: 0.85},
		{URL: "https://dailymail.co.uk/4", Domain: "dailymail.co.uk", FinalScore: 0.80},
		{URL: "https://dailymail.co.uk/5", Domain: "dailymail.co.uk", FinalScore: 0.75},
		{URL: "https://bbc.co.uk/1", Domain: "bbc.co.uk", FinalScore: 0.80},
	}

	out := applyDomainCap(items, cfg)

	counts := map[string]int{}
	for _, item := range out {
		counts[item.Domain]++
	}
	if counts["dailymail.co.uk"] != 2 {
		t.Errorf("dailymail items = %d, want capped at 2", counts["dailymail.co.uk"])
	}
	if counts["bbc.co.uk"] != 1 {
		t.Errorf("bbc items = %d, want 1", counts["bbc.co.uk"])
	}
	if len(out) != 3 {
		t.Fatalf("total items = %d, want 3", len(out))
	}

	// The capped domain keeps its strongest items
	kept := map[string]bool{}
	for _, item := range out {
		kept[item.URL] = true
	}
	if !kept["https://dailymail.co.uk/1"] || !kept["https://dailymail.co.uk/2"] {
		t.Error("cap should keep the highest-scored items per domain")
	}
}

func TestApplyDomainCapFloor(t *testing.T) {
	cfg := model.DefaultConfig().Retrieval
	cfg.TargetCount = 3 // ceil(3*0.4) = 2, already at the floor

	items := []model.Evidence{
		{URL: "https://a.com/1", Domain: "a.com", FinalScore: 0.9},
		{URL: "https://a.com/2", Domain: "a.com", FinalScore: 0.8},
		{URL: "https://a.com/3", Domain: "a.com", FinalScore: 0.7},
	}

	out := applyDomainCap(items, cfg)
	if len(out) != 2 {
		t.Fatalf("single-domain set should be capped to the floor of 2, got %d", len(out))
	}
}

func TestApplyDomainCapOrdering(t *testing.T) {
	cfg := model.DefaultConfig().Retrieval

	items := []model.Evidence{
		{URL: "https://b.com/1", Domain: "b.com", FinalScore: 0.6},
		{URL: "https://a.com/1", Domain: "a.com", FinalScore: 0.9},
		{URL: "https://c.com/1", Domain: "c.com", FinalScore: 0.7},
	}

	out := applyDomainCap(items, cfg)
	if len(out) != 3 {
		t.Fatalf("got %d items, want 3", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].FinalScore > out[i-1].FinalScore {
			t.Fatal("output not ordered by final score descending")
		}
	}
}
