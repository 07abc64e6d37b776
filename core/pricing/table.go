// Package pricing resolves unit prices from volume tier tables.
// A TierTable is immutable after construction; Store swaps whole tables.
package pricing

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"matali-pricing/core/determinism"
	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// serviceTiers holds one service's tiers ordered by MinVolume (then Row).
type serviceTiers struct {
	tiers       []types.PriceTier
	byRow       []types.PriceTier
	overlapping bool
}

// TierTable indexes price tiers by service key
type TierTable struct {
	services map[string]*serviceTiers
	keys     []string
	rows     int
	hash     determinism.ContentHash
}

// NewTierTable validates rows and builds the index. Rows without a Row number
// are numbered by their position in tiers.
func NewTierTable(tiers []types.PriceTier) (*TierTable, error) {
	t := &TierTable{services: make(map[string]*serviceTiers)}

	for i, tier := range tiers {
		if tier.Row == 0 {
			tier.Row = i + 1
		}
		if err := checkTier(tier); err != nil {
			return nil, err
		}
		st, ok := t.services[tier.ServiceKey]
		if !ok {
			st = &serviceTiers{}
			t.services[tier.ServiceKey] = st
		}
		st.byRow = append(st.byRow, tier)
		t.rows++
	}

	for _, st := range t.services {
		st.tiers = make([]types.PriceTier, len(st.byRow))
		copy(st.tiers, st.byRow)
		sort.SliceStable(st.tiers, func(i, j int) bool {
			if c := st.tiers[i].MinVolume.Cmp(st.tiers[j].MinVolume); c != 0 {
				return c < 0
			}
			return st.tiers[i].Row < st.tiers[j].Row
		})
		st.overlapping = len(findOverlaps(st.tiers)) > 0
	}

	t.keys = determinism.SortedKeys(t.services)
	t.hash = t.computeHash()
	return t, nil
}

func checkTier(t types.PriceTier) error {
	fail := func(msg string) error {
		return apperrors.Newf(apperrors.TypeValidation, "row %d: %s", t.Row, msg).
			WithContext("row", t.Row).
			WithContext("service_key", t.ServiceKey)
	}
	switch {
	case t.ServiceKey == "":
		return fail("service_key is empty")
	case t.MinVolume.IsNegative():
		return fail("min_volume must not be negative")
	case t.MaxVolume.IsNegative():
		return fail("max_volume must not be negative")
	case t.UnitPrice.IsNegative():
		return fail("unit_price must not be negative")
	case !t.Unbounded() && t.MaxVolume.LessThan(t.MinVolume):
		return fail("max_volume " + t.MaxVolume.String() + " is below min_volume " + t.MinVolume.String())
	}
	return nil
}

// Lookup returns the tier covering quantity or a NO_MATCHING_TIER error.
// Bounds are inclusive on both ends. When a service's tiers overlap, the first
// matching row in source order wins.
func (t *TierTable) Lookup(serviceKey string, quantity decimal.Decimal) (types.PriceTier, error) {
	if quantity.IsNegative() {
		return types.PriceTier{}, apperrors.Newf(apperrors.TypeInput,
			"quantity must not be negative, got %s", quantity)
	}
	st, ok := t.services[serviceKey]
	if !ok {
		return types.PriceTier{}, noTier(serviceKey, quantity, types.MissUnknownService)
	}

	if st.overlapping {
		for _, tier := range st.byRow {
			if tier.Contains(quantity) {
				return tier, nil
			}
		}
		return types.PriceTier{}, noTier(serviceKey, quantity, st.missReason(quantity))
	}

	// first tier whose lower bound exceeds quantity; its predecessor is the only candidate
	idx := sort.Search(len(st.tiers), func(i int) bool {
		return st.tiers[i].MinVolume.GreaterThan(quantity)
	})
	if idx > 0 && st.tiers[idx-1].Contains(quantity) {
		return st.tiers[idx-1], nil
	}
	return types.PriceTier{}, noTier(serviceKey, quantity, st.missReason(quantity))
}

// Resolve looks up quantity and applies policy when no tier covers it.
// Unknown service keys are an error under every policy.
func (t *TierTable) Resolve(serviceKey string, quantity decimal.Decimal, policy types.OutOfRangePolicy) (Match, error) {
	tier, err := t.Lookup(serviceKey, quantity)
	if err == nil {
		return Match{Tier: tier, Quantity: quantity}, nil
	}
	if !apperrors.IsType(err, apperrors.TypeNoTier) {
		return Match{}, err
	}

	st, ok := t.services[serviceKey]
	if !ok {
		return Match{}, err
	}
	reason := st.missReason(quantity)

	switch policy {
	case types.OutOfRangeClamp:
		return Match{Tier: st.nearest(quantity), Quantity: quantity, Clamped: true, Miss: reason}, nil
	case types.OutOfRangeZero:
		zero := types.PriceTier{ServiceKey: serviceKey, UnitPrice: decimal.Zero}
		return Match{Tier: zero, Quantity: quantity, Zeroed: true, Miss: reason}, nil
	default:
		return Match{}, err
	}
}

func noTier(serviceKey string, quantity decimal.Decimal, reason types.MissReason) error {
	return apperrors.Newf(apperrors.TypeNoTier,
		"no tier of service %q covers quantity %s (%s)", serviceKey, quantity, reason).
		WithContext("service_key", serviceKey).
		WithContext("quantity", quantity.String()).
		WithContext("reason", string(reason))
}

func (st *serviceTiers) missReason(quantity decimal.Decimal) types.MissReason {
	if quantity.LessThan(st.tiers[0].MinVolume) {
		return types.MissBelowRange
	}
	for _, tier := range st.tiers {
		if tier.Unbounded() || tier.MaxVolume.GreaterThanOrEqual(quantity) {
			return types.MissGap
		}
	}
	return types.MissAboveRange
}

// nearest picks the tier closest to quantity; ties go to the lower tier.
func (st *serviceTiers) nearest(quantity decimal.Decimal) types.PriceTier {
	best := st.tiers[0]
	bestDist := distance(best, quantity)
	for _, tier := range st.tiers[1:] {
		if d := distance(tier, quantity); d.LessThan(bestDist) {
			best, bestDist = tier, d
		}
	}
	return best
}

func distance(t types.PriceTier, q decimal.Decimal) decimal.Decimal {
	if q.LessThan(t.MinVolume) {
		return t.MinVolume.Sub(q)
	}
	if !t.Unbounded() && q.GreaterThan(t.MaxVolume) {
		return q.Sub(t.MaxVolume)
	}
	return decimal.Zero
}

// Tiers returns a service's tiers ordered by MinVolume
func (t *TierTable) Tiers(serviceKey string) []types.PriceTier {
	st, ok := t.services[serviceKey]
	if !ok {
		return nil
	}
	out := make([]types.PriceTier, len(st.tiers))
	copy(out, st.tiers)
	return out
}

// All returns every tier grouped by service key, each group ordered by MinVolume
func (t *TierTable) All() []types.PriceTier {
	out := make([]types.PriceTier, 0, t.rows)
	for _, key := range t.keys {
		out = append(out, t.services[key].tiers...)
	}
	return out
}

// ServiceKeys lists the keys present in the table, sorted
func (t *TierTable) ServiceKeys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Has reports whether the table prices serviceKey
func (t *TierTable) Has(serviceKey string) bool {
	_, ok := t.services[serviceKey]
	return ok
}

// Rows is the number of tiers in the table
func (t *TierTable) Rows() int {
	return t.rows
}

// Hash is the content hash of the canonical rows. Source row order only
// matters where it changes matching, i.e. for overlapping services.
func (t *TierTable) Hash() determinism.ContentHash {
	return t.hash
}

func (t *TierTable) computeHash() determinism.ContentHash {
	lines := make([]string, 0, t.rows)
	for _, key := range t.keys {
		st := t.services[key]
		for _, tier := range st.tiers {
			line := tier.ServiceKey + "|" + tier.TierName + "|" + tier.MinVolume.String() + "|" +
				tier.MaxVolume.String() + "|" + tier.UnitPrice.String()
			if st.overlapping {
				line += "|" + strconv.Itoa(tier.Row)
			}
			lines = append(lines, line)
		}
	}
	return determinism.HashLines(lines)
}
