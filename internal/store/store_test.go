package store

import (
	"testing"
	"time"

	"github.com/psokolov/verdex/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCheck(id string) *model.Check {
	published := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	return &model.Check{
		ID:        id,
		Status:    model.CheckStatusCompleted,
		Content:   "GDP grew 3 percent. I think that is great.",
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 10, 0, 30, 0, time.UTC),
		Claims: []model.Claim{
			{
				Index:        0,
				Text:         "GDP grew 3 percent",
				Type:         model.ClaimTypeFactual,
				IsVerifiable: true,
				Verdict:      model.VerdictSupported,
				Score:        82,
				Rationale:    "3 of 4 sources support the claim.",
				DecisionTrail: []model.DecisionStep{
					{Stage: "judge", Outcome: "supported (82/100)"},
				},
			},
			{
				Index:               1,
				Text:                "I think that is great",
				Type:                model.ClaimTypeOpinion,
				IsVerifiable:        false,
				VerifiabilityReason: "subjective opinion",
				Verdict:             model.VerdictNotFactCheckable,
			},
		},
		Evidence: map[int][]model.Evidence{
			0: {
				{
					URL: "https://reuters.com/gdp", Domain: "reuters.com",
					Snippet: "GDP grew 3 percent.", Published: &published,
					Similarity: 0.93, Credibility: 0.9, FinalScore: 0.88,
					ContentHash: "abc123", OwnershipCluster: "thomson reuters",
				},
				{
					URL: "https://b.com/copy", Domain: "b.com",
					Snippet: "GDP grew 3 percent.", IsSyndicated: true,
					CanonicalURL: "https://c.com/orig", ContentHash: "abc123",
				},
			},
		},
		Transparency: 0.8,
		StageTimings: map[string]time.Duration{
			"extract": 1200 * time.Millisecond,
			"judge":   540 * time.Millisecond,
		},
	}
}

func TestSaveAndGetCheck(t *testing.T) {
	s := newTestStore(t)

	original := sampleCheck("check-1")
	if err := s.SaveCheck(original); err != nil {
		t.Fatalf("SaveCheck failed: %v", err)
	}

	loaded, err := s.GetCheck("check-1")
	if err != nil {
		t.Fatalf("GetCheck failed: %v", err)
	}

	if loaded.Status != model.CheckStatusCompleted {
		t.Errorf("status = %s, want completed", loaded.Status)
	}
	if loaded.Content != original.Content {
		t.Errorf("content = %q", loaded.Content)
	}
	if loaded.Transparency != 0.8 {
		t.Errorf("transparency = %.2f, want 0.8", loaded.Transparency)
	}

	if len(loaded.Claims) != 2 {
		t.Fatalf("got %d claims, want 2", len(loaded.Claims))
	}
	first := loaded.Claims[0]
	if first.Verdict != model.VerdictSupported || first.Score != 82 {
		t.Errorf("claim 0 = %s/%d, want supported/82", first.Verdict, first.Score)
	}
	if len(first.DecisionTrail) != 1 || first.DecisionTrail[0].Stage != "judge" {
		t.Errorf("claim 0 trail not round-tripped: %+v", first.DecisionTrail)
	}
	second := loaded.Claims[1]
	if second.Verdict != model.VerdictNotFactCheckable || second.IsVerifiable {
		t.Errorf("claim 1 = %s verifiable=%v", second.Verdict, second.IsVerifiable)
	}

	items := loaded.Evidence[0]
	if len(items) != 2 {
		t.Fatalf("got %d evidence items for claim 0, want 2", len(items))
	}
	if items[0].URL != "https://reuters.com/gdp" || items[0].Credibility != 0.9 {
		t.Errorf("evidence 0 wrong: %+v", items[0])
	}
	if items[0].Published == nil || !items[0].Published.Equal(time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("published date not round-tripped: %v", items[0].Published)
	}
	if !items[1].IsSyndicated || items[1].CanonicalURL != "https://c.com/orig" {
		t.Errorf("syndication fields not round-tripped: %+v", items[1])
	}

	if loaded.StageTimings["extract"] != 1200*time.Millisecond {
		t.Errorf("stage timings not round-tripped: %v", loaded.StageTimings)
	}
}

func TestGetCheckMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetCheck("nope"); err == nil {
		t.Fatal("expected an error for a missing check")
	}
}

func TestSaveCheckTwiceFails(t *testing.T) {
	s := newTestStore(t)
	check := sampleCheck("dup")
	if err := s.SaveCheck(check); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := s.SaveCheck(check); err == nil {
		t.Fatal("second save of the same check should fail, checks are append-only")
	}
}

func TestListChecks(t *testing.T) {
	s := newTestStore(t)

	older := sampleCheck("old")
	older.CreatedAt = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleCheck("new")
	newer.CreatedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, c := range []*model.Check{older, newer} {
		if err := s.SaveCheck(c); err != nil {
			t.Fatalf("SaveCheck(%s) failed: %v", c.ID, err)
		}
	}

	list, err := s.ListChecks(10)
	if err != nil {
		t.Fatalf("ListChecks failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d checks, want 2", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "old" {
		t.Errorf("order = %s, %s; want newest first", list[0].ID, list[1].ID)
	}
	if list[0].Claims != 2 {
		t.Errorf("claim count = %d, want 2", list[0].Claims)
	}
}

func TestFailedCheckRoundTrip(t *testing.T) {
	s := newTestStore(t)

	check := &model.Check{
		ID:        "failed-1",
		Status:    model.CheckStatusFailed,
		Content:   "some content",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Error:     "claim extraction failed",
	}
	if err := s.SaveCheck(check); err != nil {
		t.Fatalf("SaveCheck failed: %v", err)
	}

	loaded, err := s.GetCheck("failed-1")
	if err != nil {
		t.Fatalf("GetCheck failed: %v", err)
	}
	if loaded.Status != model.CheckStatusFailed || loaded.Error != "claim extraction failed" {
		t.Errorf("failed check = %s %q", loaded.Status, loaded.Error)
	}
	if len(loaded.Claims) != 0 {
		t.Errorf("got %d claims, want none", len(loaded.Claims))
	}
}
