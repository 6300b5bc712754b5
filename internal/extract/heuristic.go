package extract

import (
	"strings"

	"github.com/psokolov/verdex/internal/model"
)

// HeuristicExtractor is the last-resort claim extractor: sentence segmentation
// plus factual-marker keyword matching. It never fails; no matching sentence
// is a valid empty result.
type HeuristicExtractor struct {
	markers []string
}

// NewHeuristicExtractor creates the rule-based extractor
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{
		markers: []string{
			"according to", "reported", "announced", "confirmed",
			"increased", "decreased", "grew", "fell", "rose", "dropped",
			"percent", "%", "million", "billion", "founded", "established",
			"discovered", "invented", "introduced", "originated", "created",
			"is located", "was born", "died", "won", "lost", "elected",
			"signed", "passed", "banned", "approved", "launched",
		},
	}
}

// Extract extracts claim drafts from plain text by keyword matching
func (e *HeuristicExtractor) Extract(content string, maxClaims int) []llmDraft {
	sentences := splitSentences(content)

	var drafts []llmDraft
	seen := make(map[string]bool)

	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, marker := range e.markers {
			if strings.Contains(lower, marker) {
				key := strings.TrimSpace(lower)
				if !seen[key] {
					seen[key] = true
					drafts = append(drafts, llmDraft{
						Text:       strings.TrimSpace(sentence),
						Confidence: 0.4, // Keyword match only; well below model-extracted confidence
						Heuristic:  "keyword:" + marker,
					})
				}
				break // Only match once per sentence
			}
		}
		if len(drafts) >= maxClaims {
			break
		}
	}

	return drafts
}

// llmDraft is the internal pre-claim shape shared by all extraction paths
type llmDraft struct {
	Text           string
	Confidence     float64
	Category       string
	Heuristic      string
	ContextGroupID string
	DependsOn      []int
}

// toClaim converts a draft into a model.Claim at the given position index
func (d llmDraft) toClaim(index int) model.Claim {
	return model.Claim{
		Text:           d.Text,
		Index:          index,
		Confidence:     d.Confidence,
		Category:       d.Category,
		Heuristic:      d.Heuristic,
		ContextGroupID: d.ContextGroupID,
		DependsOn:      d.DependsOn,
	}
}

// splitSentences splits text into sentences (simple heuristic)
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on abbreviations
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				sentence := strings.TrimSpace(current.String())
				if len(sentence) >= 20 && len(sentence) <= 500 {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= 20 && len(sentence) <= 500 {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}
