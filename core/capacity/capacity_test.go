package capacity

import (
	"testing"

	"github.com/shopspring/decimal"

	"matali-pricing/core/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMonthlyAndCostPerUnit(t *testing.T) {
	tests := []struct {
		name        string
		svc         types.Service
		monthly     string
		costPerUnit string
	}{
		{
			name: "daily",
			svc: types.Service{CapacityType: types.CapacityDaily, DailyCapacity: d("800"),
				WorkingDays: d("25"), MonthlyCost: d("40000")},
			monthly:     "20000",
			costPerUnit: "2",
		},
		{
			name: "static",
			svc: types.Service{CapacityType: types.CapacityStatic, StaticCapacity: d("500"),
				DailyCapacity: d("999"), WorkingDays: d("26"), MonthlyCost: d("30000")},
			monthly:     "500",
			costPerUnit: "60",
		},
		{
			name:        "unset type counts as daily",
			svc:         types.Service{DailyCapacity: d("10"), WorkingDays: d("20"), MonthlyCost: d("100")},
			monthly:     "200",
			costPerUnit: "0.5",
		},
		{
			name:        "no capacity",
			svc:         types.Service{CapacityType: types.CapacityStatic, MonthlyCost: d("1000")},
			monthly:     "0",
			costPerUnit: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Monthly(tt.svc); !got.Equal(d(tt.monthly)) {
				t.Errorf("Monthly = %s, want %s", got, tt.monthly)
			}
			if got := CostPerUnit(tt.svc); !got.Equal(d(tt.costPerUnit)) {
				t.Errorf("CostPerUnit = %s, want %s", got, tt.costPerUnit)
			}
		})
	}
}

func TestUtilizationAndWaste(t *testing.T) {
	svc := types.Service{CapacityType: types.CapacityStatic, StaticCapacity: d("400")}

	if got := Utilization(svc, d("100")); !got.Equal(d("25")) {
		t.Errorf("Utilization = %s", got)
	}
	if got := Waste(svc, d("100")); !got.Equal(d("300")) {
		t.Errorf("Waste = %s", got)
	}
	if got := Waste(svc, d("900")); !got.IsZero() {
		t.Errorf("over capacity waste = %s, want 0", got)
	}

	empty := types.Service{CapacityType: types.CapacityStatic}
	if !Utilization(empty, d("5")).IsZero() || !Waste(empty, d("5")).IsZero() {
		t.Error("no capacity should give zero utilization and waste")
	}
}
