package pricing

import (
	"github.com/shopspring/decimal"

	"matali-pricing/core/types"
)

// Match is a resolved tier for a quantity
type Match struct {
	Tier     types.PriceTier
	Quantity decimal.Decimal

	// Clamped is set when the out-of-range policy picked the nearest tier
	Clamped bool

	// Zeroed is set when the out-of-range policy priced the quantity at zero
	Zeroed bool

	// Miss explains why the policy was applied
	Miss types.MissReason
}

// UnitPrice returns the price per unit
func (m Match) UnitPrice() decimal.Decimal {
	return m.Tier.UnitPrice
}

// Exact reports whether a tier genuinely covered the quantity
func (m Match) Exact() bool {
	return !m.Clamped && !m.Zeroed
}
