package evidence

import (
	"sort"
	"strings"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/model"
)

// Deduplicate removes duplicate evidence in two passes: exact content-hash
// matches first (cheap), then near-duplicate token similarity above the
// threshold. Within each duplicate group the highest-credibility instance
// survives, flagged is_syndicated with a pointer to the discarded copy's URL
// so the syndication is still visible in the record. The returned set never
// contains two items with the same content hash.
func Deduplicate(items []model.Evidence, threshold float64) []model.Evidence {
	if len(items) <= 1 {
		return items
	}

	for i := range items {
		if items[i].ContentHash == "" {
			items[i].ContentHash = cache.ContentHash(items[i].Snippet)
		}
	}

	// Highest credibility first so the best copy of each group is retained
	sorted := make([]model.Evidence, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Credibility > sorted[j].Credibility
	})

	var kept []model.Evidence

	for _, item := range sorted {
		dupIdx := -1
		for k := range kept {
			if kept[k].ContentHash == item.ContentHash {
				dupIdx = k
				break
			}
			if Similarity(kept[k].Snippet, item.Snippet) >= threshold {
				dupIdx = k
				break
			}
		}

		if dupIdx >= 0 {
			kept[dupIdx].IsSyndicated = true
			if kept[dupIdx].CanonicalURL == "" {
				kept[dupIdx].CanonicalURL = item.URL
			}
			continue
		}

		kept = append(kept, item)
	}

	return kept
}

// Similarity returns a normalized sequence similarity in [0,1] between two
// snippets: twice the word-level longest common subsequence over the total
// length. 1 means identical word sequences.
func Similarity(a, b string) float64 {
	wordsA := normalizeWords(a)
	wordsB := normalizeWords(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		if len(wordsA) == len(wordsB) {
			return 1
		}
		return 0
	}

	lcs := longestCommonSubsequence(wordsA, wordsB)
	return 2 * float64(lcs) / float64(len(wordsA)+len(wordsB))
}

func normalizeWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// longestCommonSubsequence computes word-level LCS length with a rolling row
func longestCommonSubsequence(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
