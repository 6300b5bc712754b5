package evidence

import (
	"strings"

	"github.com/psokolov/verdex/internal/model"
)

// OwnershipTable maps domains to parent-company clusters from a static
// configuration table. Domains outside the table form their own cluster;
// without better information a domain is assumed independent.
type OwnershipTable struct {
	domainToParent map[string]string
}

// NewOwnershipTable builds the lookup from configuration
func NewOwnershipTable(config *model.OwnershipConfig) *OwnershipTable {
	if config == nil {
		config = &model.DefaultConfig().Ownership
	}

	table := &OwnershipTable{
		domainToParent: make(map[string]string),
	}

	for parent, domains := range config.Clusters {
		for _, domain := range domains {
			table.domainToParent[NormalizeDomain(domain)] = parent
		}
	}

	return table
}

// Parent returns the parent company for a domain, or the domain itself when
// the domain is not in the table.
func (t *OwnershipTable) Parent(domain string) string {
	domain = NormalizeDomain(domain)
	if parent, ok := t.domainToParent[domain]; ok {
		return parent
	}
	// Subdomains inherit the parent of their registered domain
	for owned, parent := range t.domainToParent {
		if strings.HasSuffix(domain, "."+owned) {
			return parent
		}
	}
	return domain
}

// Enrich fills ownership fields on each evidence item in place
func (t *OwnershipTable) Enrich(items []model.Evidence) {
	for i := range items {
		parent := t.Parent(items[i].Domain)
		items[i].OwnershipCluster = parent
		if parent != items[i].Domain {
			items[i].ParentCompany = parent
		}
	}
}

// Diversity returns 1 minus the maximum ownership-cluster concentration.
// A single-cluster evidence set scores 0; perfectly spread sources approach
// 1 - 1/n. Empty input scores 0.
func (t *OwnershipTable) Diversity(items []model.Evidence) float64 {
	if len(items) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, item := range items {
		cluster := item.OwnershipCluster
		if cluster == "" {
			cluster = t.Parent(item.Domain)
		}
		counts[cluster]++
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	return 1 - float64(max)/float64(len(items))
}

// UniqueDomains counts distinct normalized domains in the evidence set
func UniqueDomains(items []model.Evidence) int {
	seen := make(map[string]bool)
	for _, item := range items {
		seen[item.Domain] = true
	}
	return len(seen)
}
