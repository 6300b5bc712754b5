package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/psokolov/verdex/internal/model"
)

// Renderer writes completed checks as JSON reports and human summaries
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes the full check to path, or stdout when path is "-"
func (r *Renderer) RenderJSON(check *model.Check, path string) error {
	data, err := json.MarshalIndent(check, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal check: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if r.verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", path)
	}
	return nil
}

// RenderSummary prints a human-readable summary of the check
func (r *Renderer) RenderSummary(w io.Writer, check *model.Check) {
	fmt.Fprintf(w, "Check %s (%s)\n", check.ID, check.Status)
	if check.SourceURL != "" {
		fmt.Fprintf(w, "Source: %s\n", check.SourceURL)
	}
	fmt.Fprintln(w)

	if len(check.Claims) == 0 {
		fmt.Fprintln(w, "No claims found.")
		return
	}

	for _, claim := range check.Claims {
		fmt.Fprintf(w, "%s [%d/100] %s\n", verdictGlyph(claim.Verdict), claim.Score, claim.Text)
		if claim.Rationale != "" {
			fmt.Fprintf(w, "   %s\n", claim.Rationale)
		}
		if claim.Uncertainty != nil && claim.Uncertainty.Summary != "" {
			fmt.Fprintf(w, "   Uncertain: %s\n", claim.Uncertainty.Summary)
		}
		for _, ev := range check.Evidence[claim.Index] {
			marker := "-"
			if ev.IsPriorFactCheck {
				marker = "*"
			}
			fmt.Fprintf(w, "   %s %s (%.2f)\n", marker, ev.URL, ev.FinalScore)
		}
		fmt.Fprintln(w)
	}

	counts := check.VerdictCounts()
	var parts []string
	for _, v := range []model.Verdict{model.VerdictSupported, model.VerdictContradicted, model.VerdictUncertain, model.VerdictNotFactCheckable} {
		if n := counts[v]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, v))
		}
	}
	fmt.Fprintf(w, "Claims: %d (%s)\n", len(check.Claims), strings.Join(parts, ", "))
	fmt.Fprintf(w, "Transparency: %.2f  Safety risk: %.2f\n", check.Transparency, check.SafetyRisk)

	if r.verbose && len(check.StageTimings) > 0 {
		stages := make([]string, 0, len(check.StageTimings))
		for stage := range check.StageTimings {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		fmt.Fprintln(w)
		for _, stage := range stages {
			fmt.Fprintf(w, "  %-10s %v\n", stage, check.StageTimings[stage])
		}
	}
}

func verdictGlyph(v model.Verdict) string {
	switch v {
	case model.VerdictSupported:
		return "✓"
	case model.VerdictContradicted:
		return "✗"
	case model.VerdictNotFactCheckable:
		return "·"
	default:
		return "?"
	}
}
