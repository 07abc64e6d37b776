// Package ingestion - Ingestion governance
// A contract names the services a tier table must price.
package ingestion

import (
	"fmt"

	"matali-pricing/core/catalog"
	"matali-pricing/core/pricing"
)

// Contract defines coverage requirements for a tier table
type Contract struct {
	// RequiredServices must each have at least one tier
	RequiredServices []string

	// KnownServices, when set, flags table keys outside the catalog
	KnownServices map[string]bool

	// MinRows is the minimum number of tiers
	MinRows int
}

// ContractFor requires every catalog service to be priced
func ContractFor(c *catalog.Catalog) *Contract {
	contract := &Contract{KnownServices: make(map[string]bool), MinRows: 1}
	for _, svc := range c.Services() {
		contract.RequiredServices = append(contract.RequiredServices, svc.Key)
		contract.KnownServices[svc.Key] = true
	}
	return contract
}

// Check returns one message per violation
func (c *Contract) Check(table *pricing.TierTable) []string {
	var out []string
	if table.Rows() < c.MinRows {
		out = append(out, fmt.Sprintf("only %d tiers, need %d", table.Rows(), c.MinRows))
	}
	for _, key := range c.RequiredServices {
		if !table.Has(key) {
			out = append(out, fmt.Sprintf("service %q has no tiers", key))
		}
	}
	if len(c.KnownServices) > 0 {
		for _, key := range table.ServiceKeys() {
			if !c.KnownServices[key] {
				out = append(out, fmt.Sprintf("service %q is not in the service catalog", key))
			}
		}
	}
	return out
}
