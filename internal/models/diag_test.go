package models

import (
	"math/big"
	"testing"
)

func TestDiagnosticsSetAmount(t *testing.T) {
	d := Diagnostics{}
	one18 := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	d.SetAmount("profit", new(big.Int).Mul(big.NewInt(3), one18))
	if d["profit"] != "3" {
		t.Fatalf("profit=%v", d["profit"])
	}
	half := new(big.Int).Quo(one18, big.NewInt(2))
	d.SetAmount("half", half)
	if d["half"] != "0.5" {
		t.Fatalf("half=%v", d["half"])
	}
}

func TestDiagnosticsMergePrefixed(t *testing.T) {
	d := Diagnostics{"own": 1}
	d.MergePrefixed("router", Diagnostics{"error": "x", "stage": 2})
	if d["router.error"] != "x" || d["router.stage"] != 2 {
		t.Fatalf("merge lost keys: %v", d.Keys())
	}
	if d["own"] != 1 {
		t.Fatalf("existing key clobbered")
	}
}

func TestDiagnosticsNilSafe(t *testing.T) {
	var d Diagnostics
	d.Set("k", 1)
	d.SetAmount("a", big.NewInt(1))
	d.MergePrefixed("p", Diagnostics{"x": 1})
}

func TestFailureError(t *testing.T) {
	f := NewFailure(TradeTypeRouter, HaltNoRoute, nil)
	if f.Error() != "router: NoRoute" {
		t.Fatalf("got %q", f.Error())
	}
	var nilF *Failure
	if nilF.Error() != "<nil>" {
		t.Fatalf("nil receiver")
	}
}
