// Package pricing - Tier table validation report
// Overlaps and gaps are reported, not rejected; strict loading decides.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"matali-pricing/core/types"
)

// Overlap is a pair of tiers of one service that share at least one quantity
type Overlap struct {
	ServiceKey string          `json:"service_key"`
	First      types.PriceTier `json:"first"`
	Second     types.PriceTier `json:"second"`
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s: row %d %s overlaps row %d %s",
		o.ServiceKey, o.First.Row, o.First, o.Second.Row, o.Second)
}

// Gap is an open interval From < q < To that no tier of a service covers.
// Fractional gaps contain no whole quantity, e.g. between tiers 0..500 and 501..2000.
type Gap struct {
	ServiceKey string          `json:"service_key"`
	From       decimal.Decimal `json:"from"`
	To         decimal.Decimal `json:"to"`
	Fractional bool            `json:"fractional"`
}

func (g Gap) String() string {
	kind := "gap"
	if g.Fractional {
		kind = "fractional gap"
	}
	return fmt.Sprintf("%s: %s %s < q < %s", g.ServiceKey, kind, g.From, g.To)
}

// ServiceReport summarizes one service's tiers
type ServiceReport struct {
	ServiceKey string          `json:"service_key"`
	Tiers      int             `json:"tiers"`
	Min        decimal.Decimal `json:"min_volume"`
	Max        decimal.Decimal `json:"max_volume"`
	Unbounded  bool            `json:"unbounded"`
}

// Report is the result of TierTable.Validate
type Report struct {
	Services []ServiceReport `json:"services"`
	Overlaps []Overlap       `json:"overlaps,omitempty"`
	Gaps     []Gap           `json:"gaps,omitempty"`
}

// OK reports whether the table has neither overlaps nor gaps
func (r Report) OK() bool {
	return len(r.Overlaps) == 0 && len(r.Gaps) == 0
}

// WholeUnitsOK reports whether every whole quantity in range has exactly one tier.
// Fractional gaps are allowed.
func (r Report) WholeUnitsOK() bool {
	if len(r.Overlaps) > 0 {
		return false
	}
	for _, g := range r.Gaps {
		if !g.Fractional {
			return false
		}
	}
	return true
}

// Problems lists overlaps then gaps as readable lines
func (r Report) Problems() []string {
	out := make([]string, 0, len(r.Overlaps)+len(r.Gaps))
	for _, o := range r.Overlaps {
		out = append(out, o.String())
	}
	for _, g := range r.Gaps {
		out = append(out, g.String())
	}
	return out
}

// Validate detects overlapping tiers and coverage gaps per service
func (t *TierTable) Validate() Report {
	var r Report
	for _, key := range t.keys {
		st := t.services[key]

		sr := ServiceReport{ServiceKey: key, Tiers: len(st.tiers), Min: st.tiers[0].MinVolume}
		for _, tier := range st.tiers {
			if tier.Unbounded() {
				sr.Unbounded = true
			} else if tier.MaxVolume.GreaterThan(sr.Max) {
				sr.Max = tier.MaxVolume
			}
		}
		r.Services = append(r.Services, sr)

		r.Overlaps = append(r.Overlaps, findOverlaps(st.tiers)...)
		r.Gaps = append(r.Gaps, findGaps(key, st.tiers)...)
	}
	return r
}

// findOverlaps expects tiers sorted by MinVolume
func findOverlaps(tiers []types.PriceTier) []Overlap {
	var out []Overlap
	for i := 0; i < len(tiers); i++ {
		for j := i + 1; j < len(tiers); j++ {
			if !tiers[i].Unbounded() && tiers[j].MinVolume.GreaterThan(tiers[i].MaxVolume) {
				break
			}
			first, second := tiers[i], tiers[j]
			if second.Row < first.Row {
				first, second = second, first
			}
			out = append(out, Overlap{ServiceKey: first.ServiceKey, First: first, Second: second})
		}
	}
	return out
}

// findGaps walks tiers sorted by MinVolume tracking the highest covered quantity.
// Bounds are inclusive, so any next min above reach leaves (reach, min) uncovered.
func findGaps(key string, tiers []types.PriceTier) []Gap {
	var out []Gap
	one := decimal.NewFromInt(1)

	reach := tiers[0].MaxVolume
	if tiers[0].Unbounded() {
		return nil
	}
	for _, tier := range tiers[1:] {
		if tier.MinVolume.GreaterThan(reach) {
			out = append(out, Gap{
				ServiceKey: key,
				From:       reach,
				To:         tier.MinVolume,
				Fractional: !reach.Floor().Add(one).LessThan(tier.MinVolume),
			})
		}
		if tier.Unbounded() {
			return out
		}
		if tier.MaxVolume.GreaterThan(reach) {
			reach = tier.MaxVolume
		}
	}
	return out
}
