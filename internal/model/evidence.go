package model

import "time"

// Evidence represents one retrieved snippet supporting the verification of a single claim
type Evidence struct {
	URL       string     `json:"url"`                 // Full source URL
	Domain    string     `json:"domain"`              // Normalized domain (no port, no www prefix)
	Snippet   string     `json:"snippet"`             // Most relevant extract from the page
	Published *time.Time `json:"published,omitempty"` // Publication date when known

	Similarity  float64 `json:"similarity"`  // Embedding cosine similarity to the claim (0-1)
	Credibility float64 `json:"credibility"` // Domain credibility score (0-1)
	Recency     float64 `json:"recency"`     // Recency decay score (0-1)
	FinalScore  float64 `json:"final_score"` // Weighted blend of the three

	ContentHash  string `json:"content_hash"`            // SHA-256 of the normalized snippet, used for dedup
	IsSyndicated bool   `json:"is_syndicated"`           // True when this snippet duplicates another source
	CanonicalURL string `json:"canonical_url,omitempty"` // URL of the dropped duplicate when syndicated

	ParentCompany    string  `json:"parent_company,omitempty"`    // Owner cluster from the static ownership table
	OwnershipCluster string  `json:"ownership_cluster,omitempty"` // Cluster key used for diversity scoring
	TemporalScore    float64 `json:"temporal_score"`              // Temporal relevance for time-sensitive claims

	IsPriorFactCheck   bool   `json:"is_prior_fact_check"`
	FactCheckPublisher string `json:"fact_check_publisher,omitempty"`
	FactCheckRating    string `json:"fact_check_rating,omitempty"`
}

// SearchResult is one candidate returned by the search provider
type SearchResult struct {
	URL       string     `json:"url"`
	Title     string     `json:"title,omitempty"`
	Snippet   string     `json:"snippet,omitempty"`
	Published *time.Time `json:"published,omitempty"`
}

// FactCheckHit is one prior fact-check found for a claim
type FactCheckHit struct {
	Publisher string     `json:"publisher"`
	Rating    string     `json:"rating"` // Publisher's own rating vocabulary ("False", "Mostly True", ...)
	URL       string     `json:"url"`
	Date      *time.Time `json:"date,omitempty"`
}
