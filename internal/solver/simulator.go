package solver

import (
	"context"
	"errors"
	"math/big"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

// PreparedTradeParams is the ephemeral state of one simulation attempt.
// It is created once per attempt and mutated only by reassigning
// MinimumExpectedBounty and re-deriving calldata across convergence
// iterations; it is never shared between concurrent attempts.
type PreparedTradeParams struct {
	Type                  models.TradeType
	Tx                    models.RawTransaction
	MarketPrice           *big.Int
	MinimumExpectedBounty *big.Int
	TakeOrders            models.TakeOrdersConfig
	Diag                  models.Diagnostics
}

// TradePreparer is the strategy-specific half of a simulation attempt.
// The convergence loop below is the strategy-agnostic half and the only
// place the loop logic lives.
type TradePreparer interface {
	Type() models.TradeType
	PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure)
	SetTransactionData(ctx context.Context, p *PreparedTradeParams, minimumExpectedBounty *big.Int) *models.Failure
	EstimateProfit(marketPrice *big.Int) *big.Int
}

// bountyHeadroom computes the intermediate bounty floor: the coverage
// percentage inflated by 1.0025 and applied to the first dry run's gas
// cost. The buffer absorbs gas drift between the two dry runs so the
// second pass neither reverts on a too-tight floor nor loops escalating.
// A single division at the end keeps the buffer intact at small coverage
// percentages; dividing the multiplier first would truncate it away.
func bountyHeadroom(gasCost, coveragePct *big.Int) *big.Int {
	out := new(big.Int).Mul(gasCost, coveragePct)
	out.Mul(out, big.NewInt(10025))
	return out.Quo(out, big.NewInt(1_000_000))
}

// bountyFloor computes the exact final floor from the second dry run's
// gas cost, with no headroom.
func bountyFloor(gasCost, coveragePct *big.Int) *big.Int {
	out := new(big.Int).Mul(gasCost, coveragePct)
	return out.Quo(out, big.NewInt(100))
}

// TrySimulateTrade drives one attempt through the convergence loop:
//
//  1. prepare params (quote, market price check, destination, skeleton tx)
//  2. encode with a zero floor and dry-run; zero coverage accepts here
//  3. re-encode with the headroom floor and dry-run again
//  4. re-encode once more with the exact floor from step 3's gas cost;
//     no further dry run, the transaction is the candidate to submit
//
// Any dry-run failure short-circuits as NoOpportunity tagged with the
// stage it failed at. Retry across rounds is the caller's concern.
func TrySimulateTrade(ctx context.Context, tp TradePreparer, args TradeArgs, exec DryRunExecutor) (*models.Trade, *models.Failure) {
	p, fail := tp.PrepareTradeParams(ctx)
	if fail != nil {
		return nil, fail
	}
	if p.Diag == nil {
		p.Diag = models.Diagnostics{}
	}

	if fail := tp.SetTransactionData(ctx, p, big.NewInt(0)); fail != nil {
		return nil, fail
	}
	first, err := exec.DryRun(ctx, args.Sender, p.Tx, args.GasPrice, args.GasLimitMultiplier)
	if err != nil {
		return nil, dryRunFailure(p, 1, err)
	}

	if args.ZeroCoverage() {
		return acceptTrade(tp, p, args, first), nil
	}

	intermediate := bountyHeadroom(first.EstimatedGasCost, args.GasCoveragePct)
	if fail := tp.SetTransactionData(ctx, p, intermediate); fail != nil {
		return nil, fail
	}
	second, err := exec.DryRun(ctx, args.Sender, p.Tx, args.GasPrice, args.GasLimitMultiplier)
	if err != nil {
		return nil, dryRunFailure(p, 2, err)
	}

	final := bountyFloor(second.EstimatedGasCost, args.GasCoveragePct)
	if fail := tp.SetTransactionData(ctx, p, final); fail != nil {
		return nil, fail
	}
	return acceptTrade(tp, p, args, second), nil
}

// acceptTrade finalizes a converged attempt. The profit estimate uses the
// market price captured during prepare, never a re-fetched one.
func acceptTrade(tp TradePreparer, p *PreparedTradeParams, args TradeArgs, run *models.DryRunResult) *models.Trade {
	profit := tp.EstimateProfit(p.MarketPrice)
	p.Diag.SetAmount("estimatedProfit", profit)
	p.Diag.Set("gasCost", run.EstimatedGasCost.String())
	return &models.Trade{
		Type:             p.Type,
		Tx:               p.Tx,
		EstimatedGasCost: new(big.Int).Set(run.EstimatedGasCost),
		EstimatedProfit:  profit,
		OppBlockNumber:   args.BlockNumber,
		Diag:             p.Diag,
	}
}

func dryRunFailure(p *PreparedTradeParams, stage int, err error) *models.Failure {
	f := models.NewFailure(p.Type, models.HaltNoOpportunity, err)
	f.Diag = p.Diag
	f.Diag.Set("stage", stage)
	f.Diag.Set("error", err.Error())
	var node *chain.NodeError
	if errors.As(err, &node) {
		f.NonTransient = err
	}
	return f
}

// taskFailure classifies a bounty-guard compile failure. A parse
// rejection is deterministic and marked non-transient; a fetch failure is
// expected to clear by the next round.
func taskFailure(t models.TradeType, diag models.Diagnostics, err error) *models.Failure {
	f := models.NewFailure(t, models.HaltFailedToGetTaskBytecode, err)
	if diag != nil {
		f.Diag = diag
	}
	f.Diag.Set("error", err.Error())
	var ce *task.CompileError
	if errors.As(err, &ce) && ce.Parse {
		f.NonTransient = err
	}
	return f
}

// encodeFailure wraps an ABI encode failure: always deterministic.
func encodeFailure(t models.TradeType, diag models.Diagnostics, err error) *models.Failure {
	f := models.NewFailure(t, models.HaltNoOpportunity, err)
	if diag != nil {
		f.Diag = diag
	}
	f.Diag.Set("error", err.Error())
	f.NonTransient = err
	return f
}
