package solver

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

// recordingPreparer tracks every floor the loop hands to
// SetTransactionData.
type recordingPreparer struct {
	mu       sync.Mutex
	mins     []*big.Int
	setErr   *models.Failure
	profit   *big.Int
	market   *big.Int
	seenMkts []*big.Int
}

func (p *recordingPreparer) Type() models.TradeType { return models.TradeTypeRouter }

func (p *recordingPreparer) PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure) {
	market := p.market
	if market == nil {
		market = e18(4)
	}
	return &PreparedTradeParams{
		Type:        models.TradeTypeRouter,
		MarketPrice: market,
		Tx:          models.RawTransaction{To: destArb},
		Diag:        models.Diagnostics{"mkt": market.String()},
	}, nil
}

func (p *recordingPreparer) SetTransactionData(ctx context.Context, params *PreparedTradeParams, min *big.Int) *models.Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return p.setErr
	}
	p.mins = append(p.mins, new(big.Int).Set(min))
	params.Tx.Data = []byte{byte(len(p.mins))}
	params.MinimumExpectedBounty = new(big.Int).Set(min)
	return nil
}

func (p *recordingPreparer) EstimateProfit(marketPrice *big.Int) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seenMkts = append(p.seenMkts, marketPrice)
	if p.profit != nil {
		return new(big.Int).Set(p.profit)
	}
	return e18(1)
}

func TestTrySimulateTradeZeroCoverage(t *testing.T) {
	prep := &recordingPreparer{}
	exec := &stubExec{gasCosts: []*big.Int{big.NewInt(777)}}
	args := testArgs(testOrder())
	args.GasCoveragePct = big.NewInt(0)

	trade, fail := TrySimulateTrade(context.Background(), prep, args, exec)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if exec.callCount() != 1 {
		t.Fatalf("dryRuns=%d want 1", exec.callCount())
	}
	if len(prep.mins) != 1 || prep.mins[0].Sign() != 0 {
		t.Fatalf("mins=%v want single zero", prep.mins)
	}
	if trade.EstimatedGasCost.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("gasCost=%s want 777", trade.EstimatedGasCost)
	}
	if trade.OppBlockNumber != args.BlockNumber {
		t.Fatalf("oppBlock=%d want %d", trade.OppBlockNumber, args.BlockNumber)
	}
}

func TestTrySimulateTradeConvergence(t *testing.T) {
	prep := &recordingPreparer{}
	exec := &stubExec{gasCosts: []*big.Int{big.NewInt(1_000_000), big.NewInt(800_000)}}
	args := testArgs(testOrder())

	trade, fail := TrySimulateTrade(context.Background(), prep, args, exec)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if exec.callCount() != 2 {
		t.Fatalf("dryRuns=%d want 2", exec.callCount())
	}
	if len(prep.mins) != 3 {
		t.Fatalf("setTxData calls=%d want 3", len(prep.mins))
	}
	// 1_000_000 * (100*10025/100) / 10000 = 1_002_500
	if prep.mins[1].Cmp(big.NewInt(1_002_500)) != 0 {
		t.Fatalf("intermediate floor=%s want 1002500", prep.mins[1])
	}
	// final floor from the second run's cost, no headroom
	if prep.mins[2].Cmp(big.NewInt(800_000)) != 0 {
		t.Fatalf("final floor=%s want 800000", prep.mins[2])
	}
	if trade.EstimatedGasCost.Cmp(big.NewInt(800_000)) != 0 {
		t.Fatalf("gasCost=%s want second run's", trade.EstimatedGasCost)
	}
}

func TestTrySimulateTradeIntermediateAboveFinal(t *testing.T) {
	prep := &recordingPreparer{}
	exec := &stubExec{gasCosts: []*big.Int{big.NewInt(1_000_000), big.NewInt(1_000_000)}}
	args := testArgs(testOrder())

	if _, fail := TrySimulateTrade(context.Background(), prep, args, exec); fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if prep.mins[1].Cmp(prep.mins[2]) <= 0 {
		t.Fatalf("intermediate %s not above final %s at equal gas", prep.mins[1], prep.mins[2])
	}
}

func TestTrySimulateTradeDryRunFailureStages(t *testing.T) {
	for _, tc := range []struct {
		name  string
		errs  []error
		stage int
	}{
		{"first", []error{fmt.Errorf("boom")}, 1},
		{"second", []error{nil, fmt.Errorf("boom")}, 2},
	} {
		prep := &recordingPreparer{}
		exec := &stubExec{errs: tc.errs}
		_, fail := TrySimulateTrade(context.Background(), prep, testArgs(testOrder()), exec)
		if fail == nil {
			t.Fatalf("%s: expected failure", tc.name)
		}
		if fail.Reason != models.HaltNoOpportunity {
			t.Fatalf("%s: reason=%s", tc.name, fail.Reason)
		}
		if fail.Diag["stage"] != tc.stage {
			t.Fatalf("%s: stage=%v want %d", tc.name, fail.Diag["stage"], tc.stage)
		}
		if fail.NonTransient != nil {
			t.Fatalf("%s: plain error marked non-transient", tc.name)
		}
	}
}

func TestTrySimulateTradeNodeErrorNonTransient(t *testing.T) {
	prep := &recordingPreparer{}
	exec := &stubExec{errs: []error{&chain.NodeError{Err: fmt.Errorf("rpc down")}}}
	_, fail := TrySimulateTrade(context.Background(), prep, testArgs(testOrder()), exec)
	if fail == nil || fail.NonTransient == nil {
		t.Fatalf("node error should be non-transient, fail=%v", fail)
	}
}

func TestTrySimulateTradeProfitUsesPrepareMarketPrice(t *testing.T) {
	prep := &recordingPreparer{market: e18(7)}
	exec := &stubExec{}
	args := testArgs(testOrder())
	args.GasCoveragePct = big.NewInt(0)
	if _, fail := TrySimulateTrade(context.Background(), prep, args, exec); fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if len(prep.seenMkts) != 1 || prep.seenMkts[0].Cmp(e18(7)) != 0 {
		t.Fatalf("profit estimated against %v, want prepare-time 7e18", prep.seenMkts)
	}
}

func TestTaskFailureClassification(t *testing.T) {
	parse := taskFailure(models.TradeTypeRouter, models.Diagnostics{}, &task.CompileError{Parse: true, Err: fmt.Errorf("bad source")})
	if parse.NonTransient == nil {
		t.Fatalf("parse failure should be non-transient")
	}
	fetch := taskFailure(models.TradeTypeRouter, models.Diagnostics{}, &task.CompileError{Err: fmt.Errorf("timeout")})
	if fetch.NonTransient != nil {
		t.Fatalf("fetch failure should be transient")
	}
	if parse.Reason != models.HaltFailedToGetTaskBytecode || fetch.Reason != models.HaltFailedToGetTaskBytecode {
		t.Fatalf("wrong reasons: %s %s", parse.Reason, fetch.Reason)
	}
}

func TestBountyFloorsExact(t *testing.T) {
	gas := big.NewInt(123_456)
	pct := big.NewInt(100)
	if got := bountyFloor(gas, pct); got.Cmp(gas) != 0 {
		t.Fatalf("floor at 100%%=%s want %s", got, gas)
	}
	inter := bountyHeadroom(gas, pct)
	// 123456 * 10025 / 10000 = 123764 (truncated)
	if inter.Cmp(big.NewInt(123_764)) != 0 {
		t.Fatalf("headroom floor=%s want 123764", inter)
	}
}

func TestBountyHeadroomSurvivesSmallCoverage(t *testing.T) {
	gas := big.NewInt(1_000_000)
	for pct, want := range map[int64]int64{
		1:  10_025,
		2:  20_050,
		3:  30_075,
		10: 100_250,
	} {
		got := bountyHeadroom(gas, big.NewInt(pct))
		if got.Cmp(big.NewInt(want)) != 0 {
			t.Fatalf("pct=%d headroom floor=%s want %d", pct, got, want)
		}
		floor := bountyFloor(gas, big.NewInt(pct))
		if got.Cmp(floor) <= 0 {
			t.Fatalf("pct=%d headroom floor %s not above exact floor %s", pct, got, floor)
		}
	}
}
