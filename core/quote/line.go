// Package quote prices service lines and assembles customer quotes.
package quote

import (
	"github.com/shopspring/decimal"

	"matali-pricing/core/capacity"
	"matali-pricing/core/determinism"
	"matali-pricing/core/pricing"
	"matali-pricing/core/types"
)

// CalculateLine prices quantity units of svc at the matched tier and derives
// utilization, idle capacity cost and margins.
func CalculateLine(svc types.Service, quantity decimal.Decimal, match pricing.Match) types.QuoteLine {
	costPerUnit := capacity.CostPerUnit(svc)
	waste := capacity.Waste(svc, quantity)
	unitPrice := match.UnitPrice()

	revenue := determinism.Money(quantity.Mul(unitPrice))
	costUsed := determinism.Money(quantity.Mul(costPerUnit))
	costWaste := determinism.Money(waste.Mul(costPerUnit))
	totalCost := costUsed.Add(costWaste)
	marginUsed := revenue.Sub(costUsed)
	marginTotal := revenue.Sub(totalCost)

	return types.QuoteLine{
		ServiceKey:      svc.Key,
		ServiceName:     svc.DisplayName(),
		Unit:            svc.Unit,
		TierName:        match.Tier.TierName,
		Quantity:        quantity,
		MonthlyCapacity: capacity.Monthly(svc),
		UtilizationPct:  determinism.Money(capacity.Utilization(svc, quantity)),
		WasteUnits:      waste,
		CostPerUnit:     determinism.Money(costPerUnit),
		UnitPrice:       unitPrice,
		Revenue:         revenue,
		CostUsed:        costUsed,
		CostWaste:       costWaste,
		TotalCost:       totalCost,
		MarginUsed:      marginUsed,
		MarginUsedPct:   determinism.Percent(marginUsed, revenue),
		MarginTotal:     marginTotal,
		MarginTotalPct:  determinism.Percent(marginTotal, revenue),
		Clamped:         !match.Exact(),
	}
}

// Totals sums line revenue, used cost and used margin
func Totals(lines []types.QuoteLine) types.QuoteTotals {
	var t types.QuoteTotals
	for _, l := range lines {
		t.Revenue = t.Revenue.Add(l.Revenue)
		t.Cost = t.Cost.Add(l.CostUsed)
		t.Margin = t.Margin.Add(l.MarginUsed)
	}
	t.MarginPct = determinism.Percent(t.Margin, t.Revenue)
	return t
}

// Summarize aggregates saved quotes: count, revenue and mean margin
func Summarize(quotes []types.Quote) types.QuoteSummary {
	s := types.QuoteSummary{Count: len(quotes)}
	if len(quotes) == 0 {
		return s
	}

	var marginSum decimal.Decimal
	for _, q := range quotes {
		s.TotalRevenue = s.TotalRevenue.Add(q.Totals.Revenue)
		marginSum = marginSum.Add(q.Totals.MarginPct)
	}
	n := decimal.NewFromInt(int64(len(quotes)))
	s.AverageRevenue = determinism.Money(s.TotalRevenue.Div(n))
	s.AverageMarginPct = determinism.Money(marginSum.Div(n))
	return s
}
