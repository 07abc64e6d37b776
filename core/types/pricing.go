// Package types - Pricing types
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO currency code
type Currency string

const (
	// CurrencySAR is the Saudi riyal, the default quoting currency
	CurrencySAR Currency = "SAR"
	// CurrencyUSD is the US dollar
	CurrencyUSD Currency = "USD"
)

// PriceTier is one volume bracket of a service's price list
type PriceTier struct {
	// ServiceKey is the canonical service identifier
	ServiceKey string `json:"service_key"`

	// TierName is a display label, not used in matching
	TierName string `json:"tier_name"`

	// MinVolume is the inclusive lower bound
	MinVolume decimal.Decimal `json:"min_volume"`

	// MaxVolume is the inclusive upper bound; zero means unbounded
	MaxVolume decimal.Decimal `json:"max_volume"`

	// UnitPrice applies to every unit when the quantity falls in range
	UnitPrice decimal.Decimal `json:"unit_price"`

	// Row is the 1-based position in the source table
	Row int `json:"row,omitempty"`
}

// Unbounded reports whether the tier has no upper limit
func (t PriceTier) Unbounded() bool {
	return t.MaxVolume.IsZero()
}

// Contains reports whether quantity lies in [MinVolume, MaxVolume]
func (t PriceTier) Contains(quantity decimal.Decimal) bool {
	if quantity.LessThan(t.MinVolume) {
		return false
	}
	return t.Unbounded() || quantity.LessThanOrEqual(t.MaxVolume)
}

// String renders the tier range for logs and reports
func (t PriceTier) String() string {
	upper := t.MaxVolume.String()
	if t.Unbounded() {
		upper = "∞"
	}
	return fmt.Sprintf("%s[%s..%s]@%s", t.ServiceKey, t.MinVolume, upper, t.UnitPrice)
}

// OutOfRangePolicy decides what happens when no tier covers a quantity
type OutOfRangePolicy string

const (
	// OutOfRangeFail returns a NO_MATCHING_TIER error
	OutOfRangeFail OutOfRangePolicy = "fail"
	// OutOfRangeClamp prices against the nearest tier
	OutOfRangeClamp OutOfRangePolicy = "clamp"
	// OutOfRangeZero prices the quantity at zero
	OutOfRangeZero OutOfRangePolicy = "zero"
)

// ParseOutOfRangePolicy parses a policy name; empty means fail
func ParseOutOfRangePolicy(s string) (OutOfRangePolicy, error) {
	switch p := OutOfRangePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OutOfRangeFail, nil
	case OutOfRangeFail, OutOfRangeClamp, OutOfRangeZero:
		return p, nil
	default:
		return "", fmt.Errorf("unknown out-of-range policy %q (use fail, clamp or zero)", s)
	}
}

// MissReason explains why a quantity matched no tier
type MissReason string

const (
	MissUnknownService MissReason = "unknown_service"
	MissBelowRange     MissReason = "below_range"
	MissAboveRange     MissReason = "above_range"
	MissGap            MissReason = "gap"
)
