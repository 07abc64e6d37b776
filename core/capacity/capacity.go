// Package capacity derives monthly capacity and unit cost from the service master.
package capacity

import (
	"github.com/shopspring/decimal"

	"matali-pricing/core/types"
)

// Monthly returns the units a service can handle per month.
// Static services use StaticCapacity; daily services multiply by working days.
func Monthly(svc types.Service) decimal.Decimal {
	if svc.CapacityType == types.CapacityStatic {
		return svc.StaticCapacity
	}
	return svc.DailyCapacity.Mul(svc.WorkingDays)
}

// CostPerUnit spreads the monthly cost over monthly capacity; zero without capacity
func CostPerUnit(svc types.Service) decimal.Decimal {
	monthly := Monthly(svc)
	if !monthly.IsPositive() {
		return decimal.Zero
	}
	return svc.MonthlyCost.Div(monthly)
}

// Utilization is quantity as a percentage of monthly capacity
func Utilization(svc types.Service, quantity decimal.Decimal) decimal.Decimal {
	monthly := Monthly(svc)
	if !monthly.IsPositive() {
		return decimal.Zero
	}
	return quantity.Div(monthly).Mul(decimal.NewFromInt(100))
}

// Waste is the unused capacity for quantity, never negative
func Waste(svc types.Service, quantity decimal.Decimal) decimal.Decimal {
	monthly := Monthly(svc)
	if !monthly.IsPositive() {
		return decimal.Zero
	}
	return decimal.Max(monthly.Sub(quantity), decimal.Zero)
}

// Profile is the derived capacity view of a service
type Profile struct {
	ServiceKey      string             `json:"service_key"`
	CapacityType    types.CapacityType `json:"capacity_type,omitempty"`
	MonthlyCapacity decimal.Decimal    `json:"monthly_capacity"`
	MonthlyCost     decimal.Decimal    `json:"monthly_cost"`
	CostPerUnit     decimal.Decimal    `json:"cost_per_unit"`
}

// ProfileOf derives a service's capacity profile
func ProfileOf(svc types.Service) Profile {
	return Profile{
		ServiceKey:      svc.Key,
		CapacityType:    svc.CapacityType,
		MonthlyCapacity: Monthly(svc),
		MonthlyCost:     svc.MonthlyCost,
		CostPerUnit:     CostPerUnit(svc),
	}
}
