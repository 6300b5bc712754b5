package evidence

import (
	"strings"
	"unicode"
)

// Common words dropped from search queries. The query keeps entities,
// numbers and content words; search providers handle the rest.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "that": true,
	"this": true, "these": true, "those": true, "it": true, "its": true,
	"and": true, "or": true, "but": true, "not": true, "no": true,
	"which": true, "who": true, "whom": true, "what": true, "than": true,
	"then": true, "there": true, "their": true, "they": true, "them": true,
}

const maxQueryTerms = 10

// BuildQuery derives an entity/keyword focused search query from claim text.
// Capitalized tokens and numbers always survive; stopwords never do.
func BuildQuery(claimText string) string {
	words := strings.Fields(claimText)

	var keep []string
	for i, w := range words {
		trimmed := strings.Trim(w, ".,;:!?\"'()[]")
		if trimmed == "" {
			continue
		}

		lower := strings.ToLower(trimmed)

		// Capitalized mid-sentence tokens are likely entities
		isEntity := i > 0 && unicode.IsUpper([]rune(trimmed)[0])
		hasDigit := strings.ContainsFunc(trimmed, unicode.IsDigit)

		if isEntity || hasDigit {
			keep = append(keep, trimmed)
			continue
		}

		if stopwords[lower] || len(lower) < 3 {
			continue
		}
		keep = append(keep, lower)
	}

	if len(keep) > maxQueryTerms {
		keep = keep[:maxQueryTerms]
	}
	if len(keep) == 0 {
		return strings.TrimSpace(claimText)
	}

	return strings.Join(keep, " ")
}
