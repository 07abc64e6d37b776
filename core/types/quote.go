// Package types - Quote types
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus tracks the customer's answer to a quote
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
)

// Valid reports whether s is a known status
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuotePending, QuoteAccepted, QuoteRejected:
		return true
	}
	return false
}

// QuoteLine is the priced result for one service of a quote
type QuoteLine struct {
	ServiceKey      string          `json:"service_key"`
	ServiceName     string          `json:"service_name"`
	Unit            string          `json:"unit_name,omitempty"`
	TierName        string          `json:"tier_name"`
	Quantity        decimal.Decimal `json:"volume"`
	MonthlyCapacity decimal.Decimal `json:"monthly_capacity"`
	UtilizationPct  decimal.Decimal `json:"utilization_pct"`
	WasteUnits      decimal.Decimal `json:"waste_units"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Revenue         decimal.Decimal `json:"revenue"`
	CostUsed        decimal.Decimal `json:"cost_used"`
	CostWaste       decimal.Decimal `json:"cost_waste"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	MarginUsed      decimal.Decimal `json:"margin_used"`
	MarginUsedPct   decimal.Decimal `json:"margin_used_pct"`
	MarginTotal     decimal.Decimal `json:"margin_total"`
	MarginTotalPct  decimal.Decimal `json:"margin_total_pct"`
	KeyFallback     bool            `json:"key_fallback,omitempty"`
	Clamped         bool            `json:"clamped,omitempty"`
}

// QuoteTotals aggregates the lines of a quote
type QuoteTotals struct {
	Revenue   decimal.Decimal `json:"total_revenue"`
	Cost      decimal.Decimal `json:"total_cost"`
	Margin    decimal.Decimal `json:"total_margin"`
	MarginPct decimal.Decimal `json:"margin_pct"`
}

// Quote is a priced offer to a customer
type Quote struct {
	ID           string      `json:"id"`
	Customer     string      `json:"customer_name"`
	Date         time.Time   `json:"quote_date"`
	ValidityDays int         `json:"validity_days"`
	ValidUntil   time.Time   `json:"valid_until"`
	Currency     Currency    `json:"currency"`
	Status       QuoteStatus `json:"status"`
	Lines        []QuoteLine `json:"lines"`
	Totals       QuoteTotals `json:"totals"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ServicesCount is the number of priced lines
func (q *Quote) ServicesCount() int {
	return len(q.Lines)
}

// ServiceNames lists the line service names in order
func (q *Quote) ServiceNames() []string {
	names := make([]string, 0, len(q.Lines))
	for _, l := range q.Lines {
		names = append(names, l.ServiceName)
	}
	return names
}

// QuoteSummary aggregates quote history
type QuoteSummary struct {
	Count            int             `json:"count"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AverageRevenue   decimal.Decimal `json:"average_revenue"`
	AverageMarginPct decimal.Decimal `json:"average_margin_pct"`
}
