package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// Dispatcher runs every permitted strategy for one order concurrently and
// returns the single most profitable trade, or an aggregate of every
// strategy's failure. The strategy slice order is load-bearing: it breaks
// profit ties and decides which non-transient error an aggregate surfaces.
type Dispatcher struct {
	Strategies []Strategy
	Logger     *zap.Logger

	// allow restricts a strategy to the orderbooks listed for its name.
	// A strategy with no entry runs against every book.
	allow map[string]map[common.Address]bool
}

func NewDispatcher(strategies []Strategy, allowLists map[string][]string, logger *zap.Logger) (*Dispatcher, error) {
	allow := map[string]map[common.Address]bool{}
	for name, books := range allowLists {
		set := map[common.Address]bool{}
		for _, b := range books {
			if !common.IsHexAddress(b) {
				return nil, fmt.Errorf("allow list %s: %q is not an address", name, b)
			}
			set[common.HexToAddress(b)] = true
		}
		allow[name] = set
	}
	return &Dispatcher{Strategies: strategies, Logger: logger, allow: allow}, nil
}

func (d *Dispatcher) permitted(s Strategy, orderbook common.Address) bool {
	set, ok := d.allow[s.Name()]
	if !ok {
		return true
	}
	return set[orderbook]
}

// AggregateFailure is the all-strategies-failed outcome for one order.
// Diagnostics are namespaced per strategy name so nothing is lost in the
// merge; NonTransient carries the first deterministic fault in strategy
// order.
type AggregateFailure struct {
	Order        models.Pair
	Failures     map[string]*models.Failure
	Diag         models.Diagnostics
	NonTransient error
}

func (e *AggregateFailure) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, e.Failures[name].Reason))
	}
	return fmt.Sprintf("order %s: no trade found: %s", e.Order.OrderID.Hex(), strings.Join(parts, " "))
}

// Solve fans the order across strategies, joins, and ranks successes by
// estimated profit. Ties keep the earlier strategy.
func (d *Dispatcher) Solve(ctx context.Context, args TradeArgs) (*models.Trade, *AggregateFailure) {
	type slot struct {
		name  string
		trade *models.Trade
		fail  *models.Failure
	}
	var active []Strategy
	for _, s := range d.Strategies {
		if d.permitted(s, args.Order.Orderbook) {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil, &AggregateFailure{
			Order:    args.Order,
			Failures: map[string]*models.Failure{},
			Diag:     models.Diagnostics{"allowList": "no strategy permitted for orderbook"},
		}
	}

	slots := make([]slot, len(active))
	var wg sync.WaitGroup
	for i, s := range active {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			trade, fail := s.Solve(ctx, args)
			slots[i] = slot{name: s.Name(), trade: trade, fail: fail}
		}(i, s)
	}
	wg.Wait()

	var wins []slot
	for _, sl := range slots {
		if sl.trade != nil {
			wins = append(wins, sl)
		}
	}
	if len(wins) > 0 {
		sort.SliceStable(wins, func(i, j int) bool {
			return wins[i].trade.EstimatedProfit.Cmp(wins[j].trade.EstimatedProfit) > 0
		})
		winner := wins[0]
		winner.trade.Diag.Set("winner", winner.name)
		if d.Logger != nil {
			d.Logger.Info("trade found",
				zap.String("order", args.Order.OrderID.Hex()),
				zap.String("strategy", winner.name),
				zap.String("profit", fixedpoint.Format(winner.trade.EstimatedProfit)))
		}
		return winner.trade, nil
	}

	agg := &AggregateFailure{
		Order:    args.Order,
		Failures: map[string]*models.Failure{},
		Diag:     models.Diagnostics{},
	}
	for _, sl := range slots {
		agg.Failures[sl.name] = sl.fail
		agg.Diag.MergePrefixed(sl.name, sl.fail.Diag)
		agg.Diag.Set(sl.name+".reason", sl.fail.Reason.String())
		if agg.NonTransient == nil && sl.fail.NonTransient != nil {
			agg.NonTransient = sl.fail.NonTransient
		}
	}
	return nil, agg
}
