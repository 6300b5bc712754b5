package temporal

import (
	"testing"
	"time"

	"github.com/psokolov/verdex/internal/model"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzerAt(model.DefaultConfig().Temporal, testNow)
}

func TestAnnotate_RecentMarker(t *testing.T) {
	a := newTestAnalyzer()
	claim := model.Claim{Text: "The central bank recently cut interest rates"}

	a.Annotate(&claim)

	if claim.TimeReference != model.TimeReferenceRecent {
		t.Errorf("Expected recent, got %s", claim.TimeReference)
	}
	if !claim.IsTimeSensitive {
		t.Error("Expected recent claim to be time-sensitive")
	}
	if len(claim.TimeMarkers) == 0 {
		t.Error("Expected time markers recorded")
	}
}

func TestAnnotate_CurrentState(t *testing.T) {
	a := newTestAnalyzer()
	claim := model.Claim{Text: "She is the mayor of the city"}

	a.Annotate(&claim)

	if claim.TimeReference != model.TimeReferenceCurrent {
		t.Errorf("Expected current, got %s", claim.TimeReference)
	}
	if !claim.IsTimeSensitive {
		t.Error("Expected current-state claim to be time-sensitive")
	}
}

func TestAnnotate_HistoricalYear(t *testing.T) {
	a := newTestAnalyzer()
	claim := model.Claim{Text: "The treaty was signed in 1987"}

	a.Annotate(&claim)

	if claim.TimeReference != model.TimeReferencePast {
		t.Errorf("Expected past, got %s", claim.TimeReference)
	}
	if claim.IsTimeSensitive {
		t.Error("Expected historical claim not to be time-sensitive")
	}
}

func TestAnnotate_NoTemporalContent(t *testing.T) {
	a := newTestAnalyzer()
	claim := model.Claim{Text: "Water consists of hydrogen and oxygen"}

	a.Annotate(&claim)

	if claim.TimeReference != model.TimeReferenceNone {
		t.Errorf("Expected none, got %s", claim.TimeReference)
	}
}

func TestRecencyScore_Decay(t *testing.T) {
	a := newTestAnalyzer()

	fresh := testNow.Add(-24 * time.Hour)
	old := testNow.Add(-3 * 365 * 24 * time.Hour)

	freshScore := a.RecencyScore(&fresh)
	oldScore := a.RecencyScore(&old)

	if freshScore <= oldScore {
		t.Errorf("Expected fresher evidence to score higher: %v vs %v", freshScore, oldScore)
	}
	if freshScore > 1 || oldScore < 0 {
		t.Errorf("Scores out of range: %v, %v", freshScore, oldScore)
	}
}

func TestRecencyScore_HalfLife(t *testing.T) {
	a := newTestAnalyzer()
	oneYear := testNow.Add(-365 * 24 * time.Hour)

	score := a.RecencyScore(&oneYear)
	if score < 0.49 || score > 0.51 {
		t.Errorf("Expected ~0.5 at the half-life, got %v", score)
	}
}

func TestRecencyScore_UnknownDateIsNeutral(t *testing.T) {
	if score := newTestAnalyzer().RecencyScore(nil); score != 0.5 {
		t.Errorf("Expected 0.5 for unknown date, got %v", score)
	}
}

func TestWithinWindow_BenefitOfTheDoubt(t *testing.T) {
	a := newTestAnalyzer()

	if !a.WithinWindow(model.TimeReferenceRecent, nil) {
		t.Error("Expected undated evidence to pass the window check")
	}

	stale := testNow.Add(-200 * 24 * time.Hour)
	if a.WithinWindow(model.TimeReferenceRecent, &stale) {
		t.Error("Expected 200-day-old evidence outside the 90-day recent window")
	}

	if !a.WithinWindow(model.TimeReferencePast, &stale) {
		t.Error("Expected no window for historical claims")
	}
}

func TestTemporalScore(t *testing.T) {
	a := newTestAnalyzer()

	fresh := testNow.Add(-24 * time.Hour)
	stale := testNow.Add(-200 * 24 * time.Hour)

	if s := a.TemporalScore(model.TimeReferenceRecent, &fresh); s < 0.9 {
		t.Errorf("Expected fresh evidence near 1, got %v", s)
	}
	if s := a.TemporalScore(model.TimeReferenceRecent, &stale); s != 0 {
		t.Errorf("Expected out-of-window evidence to score 0, got %v", s)
	}
	if s := a.TemporalScore(model.TimeReferencePast, &stale); s != 1 {
		t.Errorf("Expected no penalty for historical claims, got %v", s)
	}
}
