package solver

import (
	"context"
	"fmt"
	"sync"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// simulateCandidates runs every candidate attempt concurrently, joins,
// and keeps the highest-profit success. Attempts are independent: each
// owns its prepared params and diagnostics, so no locking is needed
// beyond the join. On all-fail the candidate diagnostics are merged,
// indexed, into one failure.
func simulateCandidates(ctx context.Context, t models.TradeType, preparers []TradePreparer, args TradeArgs, exec DryRunExecutor) (*models.Trade, *models.Failure) {
	if len(preparers) == 0 {
		f := models.NewFailure(t, models.HaltNoOpportunity, fmt.Errorf("no candidates"))
		f.Diag.Set("candidates", 0)
		return nil, f
	}

	type outcome struct {
		trade *models.Trade
		fail  *models.Failure
	}
	outcomes := make([]outcome, len(preparers))
	var wg sync.WaitGroup
	for i, tp := range preparers {
		wg.Add(1)
		go func(i int, tp TradePreparer) {
			defer wg.Done()
			trade, fail := TrySimulateTrade(ctx, tp, args, exec)
			outcomes[i] = outcome{trade: trade, fail: fail}
		}(i, tp)
	}
	wg.Wait()

	// Strictly-greater comparison keeps the first of equals: stable for a
	// fixed candidate order.
	var best *models.Trade
	for _, o := range outcomes {
		if o.trade == nil {
			continue
		}
		if best == nil || o.trade.EstimatedProfit.Cmp(best.EstimatedProfit) > 0 {
			best = o.trade
		}
	}
	if best != nil {
		return best, nil
	}

	agg := models.NewFailure(t, models.HaltNoOpportunity, nil)
	agg.Diag.Set("candidates", len(preparers))
	for i, o := range outcomes {
		if o.fail == nil {
			continue
		}
		prefix := fmt.Sprintf("candidate.%d", i)
		agg.Diag.MergePrefixed(prefix, o.fail.Diag)
		agg.Diag.Set(prefix+".reason", o.fail.Reason.String())
		if agg.Err == nil {
			agg.Err = o.fail.Err
		}
		if agg.NonTransient == nil {
			agg.NonTransient = o.fail.NonTransient
		}
	}
	return nil, agg
}
