package fixedpoint

import (
	"math/big"
	"testing"
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), ONE18)
}

func TestMul18(t *testing.T) {
	got := Mul18(e18(10), e18(4))
	if got.Cmp(e18(40)) != 0 {
		t.Fatalf("got=%s want %s", got, e18(40))
	}
}

func TestDiv18(t *testing.T) {
	got := Div18(e18(10), e18(4))
	want := new(big.Int).Mul(big.NewInt(25), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))
	if got.Cmp(want) != 0 {
		t.Fatalf("got=%s want 2.5e18", got)
	}
}

func TestMulDivZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0))
}

func TestScale18(t *testing.T) {
	got := Scale18(big.NewInt(1_000_000), 6)
	if got.Cmp(e18(1)) != 0 {
		t.Fatalf("got=%s want 1e18", got)
	}
	got = Scale18(e18(1), 18)
	if got.Cmp(e18(1)) != 0 {
		t.Fatalf("identity at 18 decimals broken: %s", got)
	}
}

func TestScaleFrom18(t *testing.T) {
	got := ScaleFrom18(e18(3), 6)
	if got.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("got=%s want 3000000", got)
	}
}

func TestScaleRoundTripLowDecimals(t *testing.T) {
	amt := big.NewInt(123_456)
	back := ScaleFrom18(Scale18(amt, 8), 8)
	if back.Cmp(amt) != 0 {
		t.Fatalf("round trip lost precision: %s != %s", back, amt)
	}
}

func TestMin(t *testing.T) {
	a, b := e18(2), e18(3)
	if Min(a, b).Cmp(a) != 0 {
		t.Fatalf("min picked wrong side")
	}
	got := Min(a, b)
	got.Add(got, ONE18)
	if a.Cmp(e18(2)) != 0 {
		t.Fatalf("Min aliased its argument")
	}
}

func TestFormat(t *testing.T) {
	half := new(big.Int).Quo(ONE18, big.NewInt(2))
	if s := Format(half); s != "0.5" {
		t.Fatalf("got=%q want 0.5", s)
	}
	if s := Format(nil); s != "<nil>" {
		t.Fatalf("got=%q", s)
	}
}
