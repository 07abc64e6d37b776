// Package types - Service master types
package types

import (
	"github.com/shopspring/decimal"
)

// CapacityType selects how monthly capacity is derived
type CapacityType string

const (
	// CapacityDaily multiplies daily capacity by working days
	CapacityDaily CapacityType = "daily"
	// CapacityStatic uses a fixed monthly capacity (storage positions, racks)
	CapacityStatic CapacityType = "static"
)

// Service is a service master entry with its capacity and monthly cost
type Service struct {
	Key            string          `json:"service_key"`
	Group          string          `json:"service_group,omitempty"`
	Name           string          `json:"service_name,omitempty"`
	Unit           string          `json:"unit_name,omitempty"`
	Labels         []string        `json:"labels,omitempty"`
	CapacityType   CapacityType    `json:"capacity_type,omitempty"`
	DailyCapacity  decimal.Decimal `json:"daily_capacity"`
	StaticCapacity decimal.Decimal `json:"static_capacity"`
	WorkingDays    decimal.Decimal `json:"working_days"`
	MonthlyCost    decimal.Decimal `json:"monthly_cost"`
}

// DisplayName returns Name, falling back to Key
func (s Service) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}
