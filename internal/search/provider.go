// Package search wraps the external search provider and the evidence page
// fetcher. Per the pipeline's error policy both return degraded results on
// failure (an empty candidate list, a skipped source), never an error that
// aborts a claim's retrieval.
package search

import (
	"context"
	"time"

	"github.com/psokolov/verdex/internal/model"
)

// Provider is the external web-search collaborator
type Provider interface {
	// Search returns candidate sources for the query. A nil DateFilter means
	// no temporal restriction. Provider failure yields an empty slice.
	Search(ctx context.Context, query string, filter *DateFilter) []model.SearchResult
}

// DateFilter restricts search results to a publication window
type DateFilter struct {
	After time.Time
}
