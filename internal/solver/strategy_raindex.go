package solver

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/router"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

// RaindexStrategy reaches counterparties that do not sit on the order's
// pair directly: it routes the order's output through a base token and
// takes an order selling the order's input against that base. Candidates
// are ranked globally across every base token, not per base.
type RaindexStrategy struct {
	Orders    CounterpartySource
	Router    RouteProvider
	Contracts ContractsResolver
	Compiler  TaskCompiler
	Executor  DryRunExecutor
	Logger    *zap.Logger
}

func (s *RaindexStrategy) Name() string           { return "raindex" }
func (s *RaindexStrategy) Type() models.TradeType { return models.TradeTypeRaindex }

func (s *RaindexStrategy) Solve(ctx context.Context, args TradeArgs) (*models.Trade, *models.Failure) {
	order := args.Order
	addrs := s.Contracts.AddressesForTrade(order, models.TradeTypeRaindex)
	if addrs == nil {
		err := fmt.Errorf("no destination contract configured for raindex trades")
		f := models.NewFailure(s.Type(), models.HaltUndefinedTradeDestinationAddress, err)
		f.NonTransient = err
		return nil, f
	}

	byBase := s.Orders.CounterpartiesAgainstBaseTokens(order)
	if len(byBase) == 0 {
		f := models.NewFailure(s.Type(), models.HaltNoOpportunity, nil)
		f.Diag.Set("baseTokens", 0)
		return nil, f
	}

	type ranked struct {
		prep   *raindexPreparer
		profit *big.Int
	}
	var all []ranked
	routedBases := 0
	var lastErr error
	for _, cps := range byBase {
		// Every order in the group buys the same base token; its meta
		// comes off the first entry.
		base := cps[0].BuyToken
		q, err := s.Router.TryQuote(ctx, models.QuoteRequest{
			FromToken:   order.SellToken,
			ToToken:     base,
			AmountIn:    order.Quote.MaxOutput,
			GasPrice:    args.GasPrice,
			BlockNumber: args.BlockNumber,
		})
		if err != nil {
			if !errors.Is(err, router.ErrNoRoute) {
				lastErr = err
			}
			continue
		}
		routedBases++
		for _, cp := range cps {
			// The route prices output in base units; the counterparty's
			// ratio converts base back into the order's input token.
			effectivePrice := fixedpoint.Mul18(q.Price, fixedpoint.Div18(fixedpoint.One(), cp.Quote.Ratio))
			if effectivePrice.Cmp(order.Quote.Ratio) < 0 {
				continue
			}
			capacity := fixedpoint.Mul18(cp.Quote.MaxOutput, cp.Quote.Ratio)
			size := fixedpoint.Min(order.Quote.MaxOutput, fixedpoint.Div18(capacity, q.Price))
			if size.Sign() <= 0 {
				continue
			}
			all = append(all, ranked{
				prep: &raindexPreparer{
					strategy:       s,
					order:          order,
					cp:             cp,
					args:           args,
					addrs:          addrs,
					quote:          q,
					size:           size,
					effectivePrice: effectivePrice,
				},
				profit: RouterProfit(size, effectivePrice, order.Quote.Ratio, args.InputToEthPrice),
			})
		}
	}

	if routedBases == 0 {
		f := models.NewFailure(s.Type(), models.HaltNoRoute, lastErr)
		f.Diag.Set("baseTokens", len(byBase))
		if lastErr != nil {
			f.Diag.Set("error", lastErr.Error())
			f.NonTransient = lastErr
		}
		return nil, f
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].profit.Cmp(all[j].profit) > 0
	})
	if len(all) > args.TopCandidates() {
		all = all[:args.TopCandidates()]
	}
	preparers := make([]TradePreparer, len(all))
	for i, r := range all {
		preparers[i] = r.prep
	}
	return simulateCandidates(ctx, s.Type(), preparers, args, s.Executor)
}

type raindexPreparer struct {
	strategy       *RaindexStrategy
	order          models.Pair
	cp             models.Pair
	args           TradeArgs
	addrs          *chain.TradeAddresses
	quote          *models.Quote
	size           *big.Int
	effectivePrice *big.Int
}

func (p *raindexPreparer) Type() models.TradeType { return models.TradeTypeRaindex }

func (p *raindexPreparer) PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure) {
	diag := models.Diagnostics{}
	diag.Set("counterparty", p.cp.OrderID.Hex())
	diag.Set("baseToken", p.cp.BuyToken.Symbol)
	diag.SetAmount("size", p.size)
	diag.SetAmount("effectivePrice", p.effectivePrice)

	inner, err := chain.EncodeTakeOrders(models.TakeOrdersConfig{
		MinimumInput:   big.NewInt(1),
		MaximumInput:   fixedpoint.ScaleFrom18(p.cp.Quote.MaxOutput, p.cp.SellToken.Decimals),
		MaximumIORatio: new(big.Int).Set(p.cp.Quote.Ratio),
		Orders:         []models.Pair{p.cp},
	})
	if err != nil {
		return nil, encodeFailure(models.TradeTypeRaindex, diag, err)
	}
	leg, err := chain.EncodeRouteLeg(p.quote.RouteData, inner)
	if err != nil {
		return nil, encodeFailure(models.TradeTypeRaindex, diag, err)
	}

	return &PreparedTradeParams{
		Type:        models.TradeTypeRaindex,
		MarketPrice: p.effectivePrice,
		Tx: models.RawTransaction{
			To:       p.addrs.Destination,
			GasPrice: p.args.GasPrice,
		},
		TakeOrders: models.TakeOrdersConfig{
			MinimumInput:   big.NewInt(1),
			MaximumInput:   fixedpoint.ScaleFrom18(p.size, p.order.SellToken.Decimals),
			MaximumIORatio: new(big.Int).Set(p.effectivePrice),
			Orders:         []models.Pair{p.order},
			Data:           leg,
		},
		Diag: diag,
	}, nil
}

func (p *raindexPreparer) SetTransactionData(ctx context.Context, params *PreparedTradeParams, minimumExpectedBounty *big.Int) *models.Failure {
	bytecode := []byte{}
	if !p.args.ZeroCoverage() {
		var err error
		bytecode, err = p.strategy.Compiler.EnsureBountyTaskBytecode(ctx, task.EnsureBountyParams{
			InputToEthPrice:  p.args.InputToEthPrice,
			OutputToEthPrice: p.args.OutputToEthPrice,
			MinimumExpected:  minimumExpectedBounty,
			Sender:           p.args.Sender,
		}, p.addrs.Dispair)
		if err != nil {
			return taskFailure(models.TradeTypeRaindex, params.Diag, err)
		}
	}

	takeOrders, err := chain.EncodeTakeOrders(params.TakeOrders)
	if err != nil {
		return encodeFailure(models.TradeTypeRaindex, params.Diag, err)
	}
	data, err := chain.EncodeArb(p.order.Orderbook, takeOrders, chain.EvalTask{
		Interpreter: p.addrs.Dispair.Interpreter,
		Store:       p.addrs.Dispair.Store,
		Bytecode:    bytecode,
	})
	if err != nil {
		return encodeFailure(models.TradeTypeRaindex, params.Diag, err)
	}
	params.Tx.Data = data
	params.MinimumExpectedBounty = new(big.Int).Set(minimumExpectedBounty)
	return nil
}

func (p *raindexPreparer) EstimateProfit(marketPrice *big.Int) *big.Int {
	return RouterProfit(p.size, marketPrice, p.order.Quote.Ratio, p.args.InputToEthPrice)
}
