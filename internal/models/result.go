package models

import (
	"fmt"
	"math/big"
)

// HaltReason classifies why a simulation attempt could not produce a
// transaction. Assigned the moment a strategy can classify the outcome;
// never retried automatically within a round except the router's single
// partial-size fallback.
type HaltReason int

const (
	HaltNone HaltReason = iota
	HaltNoRoute
	HaltOrderRatioGreaterThanMarketPrice
	HaltNoOpportunity
	HaltUndefinedTradeDestinationAddress
	HaltFailedToGetTaskBytecode
)

func (r HaltReason) String() string {
	switch r {
	case HaltNoRoute:
		return "NoRoute"
	case HaltOrderRatioGreaterThanMarketPrice:
		return "OrderRatioGreaterThanMarketPrice"
	case HaltNoOpportunity:
		return "NoOpportunity"
	case HaltUndefinedTradeDestinationAddress:
		return "UndefinedTradeDestinationAddress"
	case HaltFailedToGetTaskBytecode:
		return "FailedToGetTaskBytecode"
	default:
		return "None"
	}
}

// Trade is a converged, ready-to-submit arbitrage transaction.
// EstimatedProfit is signed: a negative value still ranks, it does not
// flip the result into a failure.
type Trade struct {
	Type             TradeType
	Tx               RawTransaction
	EstimatedGasCost *big.Int
	EstimatedProfit  *big.Int
	OppBlockNumber   uint64
	Diag             Diagnostics
}

// Failure is the failed half of a simulation result. NonTransient, when
// set, signals a deterministic infrastructure fault (node error, bad
// encode) rather than an expected no-opportunity outcome.
type Failure struct {
	Type         TradeType
	Reason       HaltReason
	Err          error
	NonTransient error
	Diag         Diagnostics
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Type, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Reason)
}

// NewFailure builds a failure with an initialized diagnostics bag.
func NewFailure(t TradeType, reason HaltReason, err error) *Failure {
	return &Failure{Type: t, Reason: reason, Err: err, Diag: Diagnostics{}}
}
