// Package determinism provides primitives for reproducible hashing and rounding.
// Tier tables and quotes built from the same input must hash and total identically.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places for reported amounts
const MoneyPlaces = 2

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// ComputeHash computes a content hash from bytes
func ComputeHash(data []byte) ContentHash {
	return sha256.Sum256(data)
}

// HashLines hashes canonical lines; callers must emit lines in a stable order.
func HashLines(lines []string) ContentHash {
	return ComputeHash([]byte(strings.Join(lines, "\n")))
}

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements Stringer
func (h ContentHash) String() string {
	return h.Hex()[:16] + "..."
}

// IsZero reports whether the hash was never computed
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// Money rounds an amount half-away-from-zero to MoneyPlaces
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent returns part/whole*100 rounded to MoneyPlaces, zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(MoneyPlaces)
}

// SortedKeys returns map keys in ascending order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
