package evidence

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/psokolov/verdex/internal/model"
)

// Tier scores. DomainScores overrides from config win over tier membership.
const (
	scoreHigh    = 0.9
	scoreMedium  = 0.7
	scoreUnknown = 0.5
	scoreLow     = 0.2
)

// CredibilityClassifier scores domains via tiered allowlists, explicit
// overrides and URL-path patterns.
type CredibilityClassifier struct {
	config       *model.CredibilityConfig
	highMap      map[string]bool
	mediumMap    map[string]bool
	lowMap       map[string]bool
	pathPatterns []*compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	score   float64
}

// NewCredibilityClassifier creates a classifier from configuration
func NewCredibilityClassifier(config *model.CredibilityConfig) *CredibilityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Credibility
	}

	classifier := &CredibilityClassifier{
		config:    config,
		highMap:   make(map[string]bool),
		mediumMap: make(map[string]bool),
		lowMap:    make(map[string]bool),
	}

	for _, domain := range config.HighDomains {
		classifier.highMap[domain] = true
	}
	for _, domain := range config.MediumDomains {
		classifier.mediumMap[domain] = true
	}
	for _, domain := range config.LowDomains {
		classifier.lowMap[domain] = true
	}

	for _, pp := range config.PathPatterns {
		if re, err := regexp.Compile(pp.Pattern); err == nil {
			classifier.pathPatterns = append(classifier.pathPatterns, &compiledPattern{
				pattern: re,
				score:   pp.Score,
			})
		}
	}

	return classifier
}

// Score returns the credibility score (0-1) for a URL
func (c *CredibilityClassifier) Score(rawURL string) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return scoreUnknown
	}

	domain := NormalizeDomain(parsed.Host)

	if c.config.DomainScores != nil {
		if score, ok := c.config.DomainScores[domain]; ok {
			return score
		}
	}

	for _, cp := range c.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.score
		}
	}

	if matchesTier(domain, c.highMap) {
		return scoreHigh
	}
	if matchesTier(domain, c.mediumMap) {
		return scoreMedium
	}
	if matchesTier(domain, c.lowMap) {
		return scoreLow
	}

	// Government and academic hosts score high even when unlisted
	if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu") ||
		strings.Contains(domain, ".gov.") || strings.Contains(domain, ".ac.") {
		return scoreHigh
	}

	return scoreUnknown
}

// matchesTier checks exact and subdomain membership (sub.bbc.com matches bbc.com)
func matchesTier(domain string, tier map[string]bool) bool {
	if tier[domain] {
		return true
	}
	for listed := range tier {
		if strings.HasSuffix(domain, "."+listed) {
			return true
		}
	}
	return false
}

// NormalizeDomain lowercases a host and strips the port and www prefix
func NormalizeDomain(host string) string {
	host = strings.ToLower(host)
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")
	return host
}

// DomainOf extracts the normalized domain from a URL, or "" if unparseable
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return NormalizeDomain(parsed.Host)
}
