package model

import "time"

// Config carries every pipeline tunable. It is built once at check-creation
// time and passed down explicitly so that a completed check is reproducible
// even as defaults drift.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Search      SearchConfig      `yaml:"search"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Verify      VerifyConfig      `yaml:"verify"`
	Judge       JudgeConfig       `yaml:"judge"`
	Temporal    TemporalConfig    `yaml:"temporal"`
	Credibility CredibilityConfig `yaml:"credibility"`
	Ownership   OwnershipConfig   `yaml:"ownership"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	NLI         NLIConfig         `yaml:"nli"`
	FactCheck   FactCheckConfig   `yaml:"factcheck"`
	Features    FeatureFlags      `yaml:"features"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig controls outbound evidence fetches
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls"`
}

// SearchConfig controls the external search provider
type SearchConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	MaxResults int           `yaml:"max_results"` // Candidates requested per query, pre-filtering
	Timeout    time.Duration `yaml:"timeout"`
}

// RetrievalConfig controls evidence ranking, dedup and capping
type RetrievalConfig struct {
	TargetCount int `yaml:"target_count"` // Max evidence items kept per claim

	// final_score = SimilarityWeight*sim + CredibilityWeight*cred + RecencyWeight*rec
	SimilarityWeight  float64 `yaml:"similarity_weight"`
	CredibilityWeight float64 `yaml:"credibility_weight"`
	RecencyWeight     float64 `yaml:"recency_weight"`

	NearDupThreshold float64 `yaml:"near_dup_threshold"` // Token similarity above which snippets are syndicated copies

	MaxDomainRatio float64 `yaml:"max_domain_ratio"` // Share of the final set one domain may fill
	DomainCapMin   int     `yaml:"domain_cap_min"`   // Absolute floor for the per-domain cap
	DomainCapMax   int     `yaml:"domain_cap_max"`   // Absolute ceiling for the per-domain cap
}

// VerifyConfig controls entailment verification
type VerifyConfig struct {
	EntailmentThreshold float64 `yaml:"entailment_threshold"` // Min probability to count a pair as supporting/contradicting
	BatchSize           int     `yaml:"batch_size"`           // Claim/evidence pairs per NLI call
}

// JudgeConfig controls verdict assignment
type JudgeConfig struct {
	SupportMargin     int     `yaml:"support_margin"`      // Supporting must exceed contradicting by more than this
	StrongEntailment  float64 `yaml:"strong_entailment"`   // Max entailment needed for a decisive verdict
	PriorMinConfident float64 `yaml:"prior_min_confident"` // Prior fact-check agreement ratio that short-circuits the model call
	MaxConcurrent     int     `yaml:"max_concurrent"`
}

// TemporalConfig controls time-sensitivity handling
type TemporalConfig struct {
	RecencyHalfLife time.Duration `yaml:"recency_half_life"` // Age at which the recency score halves
	RecentWindow    time.Duration `yaml:"recent_window"`     // Max evidence age for recent-event claims
	CurrentWindow   time.Duration `yaml:"current_window"`    // Max evidence age for present-state claims
}

// CredibilityConfig maps domains to credibility tiers
type CredibilityConfig struct {
	HighDomains   []string           `yaml:"high_domains"`   // Wire services, official statistics, peer-reviewed publishers
	MediumDomains []string           `yaml:"medium_domains"` // Established mainstream outlets
	LowDomains    []string           `yaml:"low_domains"`    // Known low-quality or tabloid domains
	DomainScores  map[string]float64 `yaml:"domain_scores"`  // Explicit overrides, win over tier lists
	PathPatterns  []PathPattern      `yaml:"path_patterns"`  // URL-path based tier overrides
}

// PathPattern assigns a credibility score to URLs matching a regexp
type PathPattern struct {
	Pattern string  `yaml:"pattern"`
	Score   float64 `yaml:"score"`
}

// OwnershipConfig maps domains to parent-company clusters for independence scoring
type OwnershipConfig struct {
	Clusters map[string][]string `yaml:"clusters"` // Parent company -> owned domains
}

// CacheConfig controls the layered cache and per-category TTLs
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`

	SearchTTL    time.Duration `yaml:"search_ttl"`
	ClaimsTTL    time.Duration `yaml:"claims_ttl"`
	EmbeddingTTL time.Duration `yaml:"embedding_ttl"`
	NLITTL       time.Duration `yaml:"nli_ttl"`
	ResultTTL    time.Duration `yaml:"result_ttl"`
}

// ConcurrencyConfig bounds the pipeline's parallelism
type ConcurrencyConfig struct {
	ClaimWorkers      int     `yaml:"claim_workers"`       // Claims verified concurrently within one check
	FetchWorkers      int     `yaml:"fetch_workers"`       // Per-source fetches within one claim's retrieval
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Per-domain fetch rate
	Burst             int     `yaml:"burst"`
}

// PipelineConfig bounds one verification job
type PipelineConfig struct {
	MaxClaims       int           `yaml:"max_claims"`       // Claims extracted per check, excess is dropped
	CheckTimeout    time.Duration `yaml:"check_timeout"`    // Wall-clock budget; in-flight claims go uncertain past it
	ArchiveEndpoint string        `yaml:"archive_endpoint"` // Citation archival service, blank disables
	DatabasePath    string        `yaml:"database_path"`    // SQLite file for completed checks, blank disables persistence
}

// LLMConfig configures the instruction-following model providers.
// Fallback is tried when the primary fails or returns an invalid schema.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`

	FallbackProvider string `yaml:"fallback_provider"`
	FallbackModel    string `yaml:"fallback_model"`
	FallbackAPIKey   string `yaml:"fallback_api_key"`
	FallbackBaseURL  string `yaml:"fallback_base_url"`

	Timeout   int `yaml:"timeout"` // Seconds
	MaxTokens int `yaml:"max_tokens"`
}

// EmbeddingConfig configures the embedding provider
type EmbeddingConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // Seconds
}

// NLIConfig configures the natural-language-inference classifier endpoint
type NLIConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Timeout       int     `yaml:"timeout"` // Seconds
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// FactCheckConfig configures the prior fact-check lookup service
type FactCheckConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout"` // Seconds
}

// FeatureFlags gates optional enrichment stages per check
type FeatureFlags struct {
	EnhancedExplainability bool `yaml:"enhanced_explainability"` // Decision trails + uncertainty explanations
	TemporalFiltering      bool `yaml:"temporal_filtering"`      // Drop stale evidence for time-sensitive claims
	ArchiveCitations       bool `yaml:"archive_citations"`       // Fire-and-forget archival of cited URLs
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
	Pretty  bool `yaml:"pretty"` // Indent JSON output
}

// DefaultConfig returns the built-in defaults. The similarity/credibility/
// recency weights and the 0.85 near-duplicate threshold are tunable working
// values, not derived constants.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "Verdex/0.1 (+https://github.com/psokolov/verdex)",
			MaxBodyBytes: 2_000_000,
		},
		Search: SearchConfig{
			MaxResults: 10,
			Timeout:    10 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TargetCount:       5,
			SimilarityWeight:  0.5,
			CredibilityWeight: 0.3,
			RecencyWeight:     0.2,
			NearDupThreshold:  0.85,
			MaxDomainRatio:    0.4,
			DomainCapMin:      2,
			DomainCapMax:      3,
		},
		Verify: VerifyConfig{
			EntailmentThreshold: 0.7,
			BatchSize:           8,
		},
		Judge: JudgeConfig{
			SupportMargin:     1,
			StrongEntailment:  0.75,
			PriorMinConfident: 0.8,
			MaxConcurrent:     3,
		},
		Temporal: TemporalConfig{
			RecencyHalfLife: 365 * 24 * time.Hour,
			RecentWindow:    90 * 24 * time.Hour,
			CurrentWindow:   30 * 24 * time.Hour,
		},
		Credibility: CredibilityConfig{
			HighDomains: []string{
				"reuters.com", "apnews.com", "bbc.com", "bbc.co.uk",
				"nature.com", "science.org", "who.int", "census.gov",
				"ons.gov.uk", "europa.eu", "imf.org", "worldbank.org",
			},
			MediumDomains: []string{
				"nytimes.com", "washingtonpost.com", "theguardian.com",
				"wsj.com", "ft.com", "economist.com", "npr.org",
				"aljazeera.com", "cnn.com", "cbsnews.com",
			},
			LowDomains: []string{
				"dailymail.co.uk", "thesun.co.uk", "nypost.com",
				"infowars.com", "naturalnews.com",
			},
		},
		Ownership: OwnershipConfig{
			Clusters: map[string][]string{
				"news corp":             {"wsj.com", "nypost.com", "thesun.co.uk", "foxnews.com", "news.com.au"},
				"dmg media":             {"dailymail.co.uk", "metro.co.uk", "inews.co.uk"},
				"warner bros discovery": {"cnn.com", "cnn.es"},
				"paramount":             {"cbsnews.com", "cbs.com"},
				"guardian media":        {"theguardian.com", "observer.co.uk"},
				"thomson reuters":       {"reuters.com"},
			},
		},
		Cache: CacheConfig{
			Enabled:      true,
			SearchTTL:    time.Hour,
			ClaimsTTL:    6 * time.Hour,
			EmbeddingTTL: 7 * 24 * time.Hour,
			NLITTL:       24 * time.Hour,
			ResultTTL:    3 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			ClaimWorkers:      4,
			FetchWorkers:      3,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Pipeline: PipelineConfig{
			MaxClaims:       10,
			CheckTimeout:    2 * time.Minute,
			ArchiveEndpoint: "https://web.archive.org/save/",
		},
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			FallbackProvider: "anthropic",
			Timeout:          30,
			MaxTokens:        2000,
		},
		Embedding: EmbeddingConfig{
			Model:   "text-embedding-3-small",
			Timeout: 20,
		},
		NLI: NLIConfig{
			Timeout:       20,
			RatePerSecond: 4,
		},
		FactCheck: FactCheckConfig{
			Timeout: 10,
		},
		Features: FeatureFlags{
			EnhancedExplainability: true,
			TemporalFiltering:      true,
			ArchiveCitations:       false,
		},
		Output: OutputConfig{
			Pretty: true,
		},
	}
}
