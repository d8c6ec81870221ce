package solver

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/router"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

// RouterStrategy clears an order against external AMM liquidity: it asks
// the route providers for the best swap of the order's output token into
// its input token and submits through the arb contract.
type RouterStrategy struct {
	Router    RouteProvider
	Contracts ContractsResolver
	Compiler  TaskCompiler
	Executor  DryRunExecutor
	Logger    *zap.Logger
}

func (s *RouterStrategy) Name() string           { return "router" }
func (s *RouterStrategy) Type() models.TradeType { return models.TradeTypeRouter }

// Solve attempts the order's full size first. When the full size cannot
// route or cannot beat the order's ratio, it searches for the largest
// clearable slice and retries exactly once at that size.
func (s *RouterStrategy) Solve(ctx context.Context, args TradeArgs) (*models.Trade, *models.Failure) {
	order := args.Order

	// Resolved before any network round trip: a missing destination is a
	// config fault, not a market outcome.
	if s.Contracts.AddressesForTrade(order, models.TradeTypeRouter) == nil {
		err := fmt.Errorf("no destination contract configured for router trades")
		f := models.NewFailure(models.TradeTypeRouter, models.HaltUndefinedTradeDestinationAddress, err)
		f.NonTransient = err
		return nil, f
	}

	full := s.preparer(order, args, order.Quote.MaxOutput, false)
	trade, fail := TrySimulateTrade(ctx, full, args, s.Executor)
	if trade != nil {
		return trade, nil
	}

	// The retry is for market conditions only; an infrastructure fault at
	// full size will fault at partial size too.
	if fail.NonTransient != nil {
		return nil, fail
	}
	if fail.Reason != models.HaltNoRoute && fail.Reason != models.HaltOrderRatioGreaterThanMarketPrice {
		return nil, fail
	}

	size := s.Router.FindLargestTradeSize(ctx, models.QuoteRequest{
		FromToken:   order.SellToken,
		ToToken:     order.BuyToken,
		AmountIn:    order.Quote.MaxOutput,
		GasPrice:    args.GasPrice,
		BlockNumber: args.BlockNumber,
	}, order.Quote.Ratio)
	if size == nil {
		return nil, fail
	}
	if s.Logger != nil {
		s.Logger.Debug("retrying at partial size",
			zap.String("order", order.OrderID.Hex()),
			zap.String("size", fixedpoint.Format(size)))
	}

	partial := s.preparer(order, args, size, true)
	trade, pfail := TrySimulateTrade(ctx, partial, args, s.Executor)
	if trade != nil {
		return trade, nil
	}
	pfail.Diag.Set("isPartial", true)
	return nil, pfail
}

func (s *RouterStrategy) preparer(order models.Pair, args TradeArgs, amountIn *big.Int, isPartial bool) *routerPreparer {
	return &routerPreparer{
		strategy:  s,
		order:     order,
		args:      args,
		amountIn:  new(big.Int).Set(amountIn),
		isPartial: isPartial,
		tradeType: models.TradeTypeRouter,
	}
}

// routerPreparer is one sized attempt. The trade type starts generic and
// is refined to the winning route's backend once a quote lands.
type routerPreparer struct {
	strategy  *RouterStrategy
	order     models.Pair
	args      TradeArgs
	amountIn  *big.Int
	isPartial bool

	tradeType models.TradeType
	addrs     *chain.TradeAddresses
	quote     *models.Quote
}

func (p *routerPreparer) Type() models.TradeType { return p.tradeType }

func (p *routerPreparer) PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure) {
	order := p.order
	diag := models.Diagnostics{}
	diag.SetAmount("amountIn", p.amountIn)
	if p.isPartial {
		diag.Set("isPartial", true)
	}

	q, err := p.strategy.Router.TryQuote(ctx, models.QuoteRequest{
		FromToken:   order.SellToken,
		ToToken:     order.BuyToken,
		AmountIn:    p.amountIn,
		GasPrice:    p.args.GasPrice,
		BlockNumber: p.args.BlockNumber,
	})
	if err != nil {
		f := models.NewFailure(p.tradeType, models.HaltNoRoute, err)
		f.Diag = diag
		f.Diag.Set("error", err.Error())
		if !errors.Is(err, router.ErrNoRoute) {
			f.NonTransient = err
		}
		return nil, f
	}
	p.quote = q
	diag.SetAmount("amountOut", q.AmountOut)
	diag.SetAmount("marketPrice", q.Price)
	if len(q.RouteVisual) > 0 {
		diag.Set("route", q.RouteVisual)
	}

	if q.Price.Cmp(order.Quote.Ratio) < 0 {
		f := models.NewFailure(p.tradeType, models.HaltOrderRatioGreaterThanMarketPrice, nil)
		f.Diag = diag
		f.Diag.SetAmount("orderRatio", order.Quote.Ratio)
		return nil, f
	}

	p.tradeType = models.TradeTypeForRoute(q.Kind)
	p.addrs = p.strategy.Contracts.AddressesForTrade(order, p.tradeType)
	if p.addrs == nil {
		err := fmt.Errorf("no destination contract configured for %s trades", p.tradeType)
		f := models.NewFailure(p.tradeType, models.HaltUndefinedTradeDestinationAddress, err)
		f.Diag = diag
		f.NonTransient = err
		return nil, f
	}

	return &PreparedTradeParams{
		Type:        p.tradeType,
		MarketPrice: q.Price,
		Tx: models.RawTransaction{
			To:       p.addrs.Destination,
			GasPrice: p.args.GasPrice,
		},
		TakeOrders: models.TakeOrdersConfig{
			MinimumInput:   big.NewInt(1),
			MaximumInput:   fixedpoint.ScaleFrom18(p.amountIn, order.SellToken.Decimals),
			MaximumIORatio: new(big.Int).Set(q.Price),
			Orders:         []models.Pair{order},
			Data:           q.RouteData,
		},
		Diag: diag,
	}, nil
}

func (p *routerPreparer) SetTransactionData(ctx context.Context, params *PreparedTradeParams, minimumExpectedBounty *big.Int) *models.Failure {
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
			return taskFailure(p.tradeType, params.Diag, err)
		}
	}

	takeOrders, err := chain.EncodeTakeOrders(params.TakeOrders)
	if err != nil {
		return encodeFailure(p.tradeType, params.Diag, err)
	}
	data, err := chain.EncodeArb(p.order.Orderbook, takeOrders, chain.EvalTask{
		Interpreter: p.addrs.Dispair.Interpreter,
		Store:       p.addrs.Dispair.Store,
		Bytecode:    bytecode,
	})
	if err != nil {
		return encodeFailure(p.tradeType, params.Diag, err)
	}
	params.Tx.Data = data
	params.MinimumExpectedBounty = new(big.Int).Set(minimumExpectedBounty)
	return nil
}

func (p *routerPreparer) EstimateProfit(marketPrice *big.Int) *big.Int {
	return RouterProfit(p.amountIn, marketPrice, p.order.Quote.Ratio, p.args.InputToEthPrice)
}
