package temporal

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/psokolov/verdex/internal/model"
)

// Analyzer detects time-sensitivity in claims and scores evidence age.
// Detection is lexical: explicit years, month names, and relative-time
// phrases. No model call involved.
type Analyzer struct {
	cfg model.TemporalConfig
	now func() time.Time
}

// NewAnalyzer creates a temporal analyzer
func NewAnalyzer(cfg model.TemporalConfig) *Analyzer {
	return &Analyzer{cfg: cfg, now: time.Now}
}

// NewAnalyzerAt creates an analyzer with a fixed clock, for tests
func NewAnalyzerAt(cfg model.TemporalConfig, now time.Time) *Analyzer {
	return &Analyzer{cfg: cfg, now: func() time.Time { return now }}
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var currentMarkers = []string{
	"currently", "now ", "today", "at present", "as of now", "right now",
	"is the", "are the", "remains", "still ",
}

var recentMarkers = []string{
	"recently", "yesterday", "last week", "last month", "this week",
	"this month", "this year", "just announced", "breaking",
	"latest", "newly",
}

// Annotate fills in a claim's temporal fields in place
func (a *Analyzer) Annotate(claim *model.Claim) {
	markers, ref := a.detect(claim.Text)
	claim.TimeMarkers = markers
	claim.TimeReference = ref
	claim.IsTimeSensitive = ref == model.TimeReferenceRecent || ref == model.TimeReferenceCurrent
}

// detect extracts temporal markers and classifies the time reference
func (a *Analyzer) detect(text string) ([]string, model.TimeReference) {
	lower := " " + strings.ToLower(text) + " "
	var markers []string

	for _, m := range recentMarkers {
		if strings.Contains(lower, m) {
			markers = append(markers, strings.TrimSpace(m))
		}
	}
	if len(markers) > 0 {
		return markers, model.TimeReferenceRecent
	}

	for _, m := range currentMarkers {
		if strings.Contains(lower, m) {
			markers = append(markers, strings.TrimSpace(m))
		}
	}
	if len(markers) > 0 {
		return markers, model.TimeReferenceCurrent
	}

	years := yearPattern.FindAllString(text, -1)
	markers = append(markers, years...)
	for _, m := range monthNames {
		if strings.Contains(lower, m) {
			markers = append(markers, m)
		}
	}

	if len(years) > 0 {
		currentYear := a.now().Year()
		for _, y := range years {
			if parseYear(y) >= currentYear-1 {
				return markers, model.TimeReferenceRecent
			}
		}
		return markers, model.TimeReferencePast
	}

	if len(markers) > 0 {
		return markers, model.TimeReferencePast
	}

	return nil, model.TimeReferenceNone
}

// MaxAge returns the maximum acceptable evidence age for a time reference.
// Zero means no age limit.
func (a *Analyzer) MaxAge(ref model.TimeReference) time.Duration {
	switch ref {
	case model.TimeReferenceRecent:
		return a.cfg.RecentWindow
	case model.TimeReferenceCurrent:
		return a.cfg.CurrentWindow
	default:
		return 0
	}
}

// RecencyScore maps a publication date to (0,1] with exponential decay.
// Evidence of unknown age scores a neutral 0.5.
func (a *Analyzer) RecencyScore(published *time.Time) float64 {
	if published == nil {
		return 0.5
	}

	age := a.now().Sub(*published)
	if age < 0 {
		age = 0
	}

	halfLife := a.cfg.RecencyHalfLife
	if halfLife <= 0 {
		halfLife = 365 * 24 * time.Hour
	}

	return math.Pow(0.5, age.Hours()/halfLife.Hours())
}

// TemporalScore rates how well evidence age fits a claim's time window.
// Inside the window scores linearly from 1 (fresh) down to 0.5 (window edge);
// outside scores 0. Undated evidence gets the benefit of the doubt.
func (a *Analyzer) TemporalScore(ref model.TimeReference, published *time.Time) float64 {
	maxAge := a.MaxAge(ref)
	if maxAge == 0 {
		return 1
	}
	if published == nil {
		return 0.5
	}

	age := a.now().Sub(*published)
	if age < 0 {
		age = 0
	}
	if age > maxAge {
		return 0
	}

	return 1 - 0.5*(age.Hours()/maxAge.Hours())
}

// WithinWindow reports whether evidence is fresh enough for the claim.
// Undated evidence passes (benefit of the doubt).
func (a *Analyzer) WithinWindow(ref model.TimeReference, published *time.Time) bool {
	maxAge := a.MaxAge(ref)
	if maxAge == 0 || published == nil {
		return true
	}
	return a.now().Sub(*published) <= maxAge
}

func parseYear(s string) int {
	year := 0
	for _, r := range s {
		year = year*10 + int(r-'0')
	}
	return year
}
