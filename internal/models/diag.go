package models

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// Diagnostics is the mutable key/value bag carried through one simulation
// attempt and merged into the final result. Keys are additive; aggregation
// across strategies namespaces them so nothing is overwritten.
type Diagnostics map[string]any

func (d Diagnostics) Set(key string, value any) {
	if d == nil {
		return
	}
	d[key] = value
}

// SetAmount renders a 1e18-scaled integer as a human-readable decimal
// string. The exact integer never leaves the core math; this is display
// only.
func (d Diagnostics) SetAmount(key string, amount *big.Int) {
	if d == nil || amount == nil {
		return
	}
	d[key] = decimal.NewFromBigInt(amount, -18).String()
}

// MergePrefixed copies every key of other under "<prefix>.<key>".
func (d Diagnostics) MergePrefixed(prefix string, other Diagnostics) {
	if d == nil {
		return
	}
	for k, v := range other {
		d[prefix+"."+k] = v
	}
}

// Keys returns the bag's keys sorted, for deterministic logging.
func (d Diagnostics) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
