package solver

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// failingPreparer halts at prepare with a fixed failure.
type failingPreparer struct {
	reason       models.HaltReason
	nonTransient error
}

func (p *failingPreparer) Type() models.TradeType { return models.TradeTypeIntraOrderbook }

func (p *failingPreparer) PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure) {
	f := models.NewFailure(models.TradeTypeIntraOrderbook, p.reason, fmt.Errorf("prepare halted"))
	f.Diag.Set("marker", string(rune('a'+int(p.reason))))
	f.NonTransient = p.nonTransient
	return nil, f
}

func (p *failingPreparer) SetTransactionData(ctx context.Context, params *PreparedTradeParams, min *big.Int) *models.Failure {
	return nil
}

func (p *failingPreparer) EstimateProfit(marketPrice *big.Int) *big.Int { return big.NewInt(0) }

func TestSimulateCandidatesPicksHighestProfit(t *testing.T) {
	exec := &stubExec{}
	args := testArgs(testOrder())
	args.GasCoveragePct = big.NewInt(0)
	preparers := []TradePreparer{
		&recordingPreparer{profit: e18(1)},
		&recordingPreparer{profit: e18(5)},
		&recordingPreparer{profit: e18(3)},
	}
	trade, fail := simulateCandidates(context.Background(), models.TradeTypeIntraOrderbook, preparers, args, exec)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if trade.EstimatedProfit.Cmp(e18(5)) != 0 {
		t.Fatalf("profit=%s want 5e18", trade.EstimatedProfit)
	}
}

func TestSimulateCandidatesTieKeepsFirst(t *testing.T) {
	exec := &stubExec{}
	args := testArgs(testOrder())
	args.GasCoveragePct = big.NewInt(0)
	first := &recordingPreparer{profit: e18(2), market: e18(9)}
	second := &recordingPreparer{profit: e18(2), market: e18(8)}
	trade, fail := simulateCandidates(context.Background(), models.TradeTypeIntraOrderbook, []TradePreparer{first, second}, args, exec)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if trade.EstimatedProfit.Cmp(e18(2)) != 0 {
		t.Fatalf("profit=%s want 2e18", trade.EstimatedProfit)
	}
	// strictly-greater comparison keeps the first of equals
	if trade.Diag["mkt"] != first.market.String() {
		t.Fatalf("tie broke toward candidate with mkt=%v, want first (%s)", trade.Diag["mkt"], first.market)
	}
}

func TestSimulateCandidatesAggregatesFailures(t *testing.T) {
	exec := &stubExec{}
	args := testArgs(testOrder())
	nodeErr := &chain.NodeError{Err: fmt.Errorf("down")}
	preparers := []TradePreparer{
		&failingPreparer{reason: models.HaltNoOpportunity},
		&failingPreparer{reason: models.HaltNoRoute, nonTransient: nodeErr},
	}
	trade, fail := simulateCandidates(context.Background(), models.TradeTypeIntraOrderbook, preparers, args, exec)
	if trade != nil {
		t.Fatalf("unexpected trade")
	}
	if fail.Diag["candidate.0.reason"] != "NoOpportunity" {
		t.Fatalf("candidate.0.reason=%v", fail.Diag["candidate.0.reason"])
	}
	if fail.Diag["candidate.1.reason"] != "NoRoute" {
		t.Fatalf("candidate.1.reason=%v", fail.Diag["candidate.1.reason"])
	}
	if fail.Diag["candidate.0.marker"] == nil || fail.Diag["candidate.1.marker"] == nil {
		t.Fatalf("per-candidate diagnostics lost: %v", fail.Diag.Keys())
	}
	if fail.NonTransient != nodeErr {
		t.Fatalf("nonTransient=%v want node error", fail.NonTransient)
	}
}

func TestSimulateCandidatesEmpty(t *testing.T) {
	_, fail := simulateCandidates(context.Background(), models.TradeTypeRaindex, nil, testArgs(testOrder()), &stubExec{})
	if fail == nil || fail.Reason != models.HaltNoOpportunity {
		t.Fatalf("fail=%v", fail)
	}
}
