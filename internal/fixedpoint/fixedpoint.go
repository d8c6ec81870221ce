// Package fixedpoint implements the exact 1e18 fixed-point integer
// arithmetic every cross-strategy amount is normalized to. All operations
// are big.Int based; nothing here rounds through floats.
package fixedpoint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ONE18 is the 1e18 fixed-point unit.
var ONE18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// One returns a fresh copy of the 1e18 unit.
func One() *big.Int { return new(big.Int).Set(ONE18) }

// MulDiv returns a*b/div with the intermediate product kept exact.
// div must be non-zero.
func MulDiv(a, b, div *big.Int) *big.Int {
	if div.Sign() == 0 {
		panic("fixedpoint: division by zero")
	}
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, div)
}

// Mul18 multiplies two 1e18-scaled values: a*b/1e18.
func Mul18(a, b *big.Int) *big.Int { return MulDiv(a, b, ONE18) }

// Div18 divides two 1e18-scaled values: a*1e18/b.
func Div18(a, b *big.Int) *big.Int { return MulDiv(a, ONE18, b) }

// Scale18 rescales an amount in native token decimals to 18 decimals.
func Scale18(amount *big.Int, decimals uint8) *big.Int {
	if decimals == 18 {
		return new(big.Int).Set(amount)
	}
	if decimals < 18 {
		f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
		return new(big.Int).Mul(amount, f)
	}
	f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-18)), nil)
	return new(big.Int).Quo(new(big.Int).Set(amount), f)
}

// ScaleFrom18 rescales an 18-decimal amount back to native token decimals.
// This is the only place amounts leave the 18-decimal domain, and it
// happens only when building calldata.
func ScaleFrom18(amount *big.Int, decimals uint8) *big.Int {
	if decimals == 18 {
		return new(big.Int).Set(amount)
	}
	if decimals < 18 {
		f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
		return new(big.Int).Quo(new(big.Int).Set(amount), f)
	}
	f := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-18)), nil)
	return new(big.Int).Mul(amount, f)
}

// Min returns the smaller of a and b as a fresh value.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Format renders a 1e18-scaled integer as a decimal string for logs and
// diagnostics.
func Format(amount *big.Int) string {
	if amount == nil {
		return "<nil>"
	}
	return decimal.NewFromBigInt(amount, -18).String()
}
