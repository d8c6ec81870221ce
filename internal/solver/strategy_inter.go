package solver

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

// InterOrderbookStrategy clears the order against opposite-side orders
// resting on other books. The arb contract takes the order on its own
// book and fills it by taking the counterparty on the other book, so the
// two books must speak the same order version.
type InterOrderbookStrategy struct {
	Orders    CounterpartySource
	Contracts ContractsResolver
	Compiler  TaskCompiler
	Executor  DryRunExecutor
	Logger    *zap.Logger
}

func (s *InterOrderbookStrategy) Name() string           { return "interOrderbook" }
func (s *InterOrderbookStrategy) Type() models.TradeType { return models.TradeTypeInterOrderbook }

func (s *InterOrderbookStrategy) Solve(ctx context.Context, args TradeArgs) (*models.Trade, *models.Failure) {
	order := args.Order
	addrs := s.Contracts.AddressesForTrade(order, models.TradeTypeInterOrderbook)
	if addrs == nil {
		err := fmt.Errorf("no destination contract configured for inter-orderbook trades")
		f := models.NewFailure(s.Type(), models.HaltUndefinedTradeDestinationAddress, err)
		f.NonTransient = err
		return nil, f
	}

	all := s.Orders.OtherOrderbookCounterparties(order)
	versionMismatches := 0
	var candidates []models.Pair
	for _, cp := range all {
		if cp.Version != order.Version {
			versionMismatches++
			continue
		}
		if fixedpoint.Mul18(order.Quote.Ratio, cp.Quote.Ratio).Cmp(fixedpoint.ONE18) >= 0 {
			continue
		}
		candidates = append(candidates, cp)
		if len(candidates) == args.TopCandidates() {
			break
		}
	}
	if len(candidates) == 0 {
		f := models.NewFailure(s.Type(), models.HaltNoOpportunity, nil)
		f.Diag.Set("counterparties", len(all))
		f.Diag.Set("versionMismatches", versionMismatches)
		return nil, f
	}

	preparers := make([]TradePreparer, 0, len(candidates))
	for _, cp := range candidates {
		size := fixedpoint.Min(order.Quote.MaxOutput, fixedpoint.Mul18(cp.Quote.MaxOutput, cp.Quote.Ratio))
		if size.Sign() <= 0 {
			continue
		}
		preparers = append(preparers, &interPreparer{
			strategy:  s,
			order:     order,
			cp:        cp,
			args:      args,
			addrs:     addrs,
			clearSize: size,
		})
	}
	return simulateCandidates(ctx, s.Type(), preparers, args, s.Executor)
}

type interPreparer struct {
	strategy  *InterOrderbookStrategy
	order     models.Pair
	cp        models.Pair
	args      TradeArgs
	addrs     *chain.TradeAddresses
	clearSize *big.Int
}

func (p *interPreparer) Type() models.TradeType { return models.TradeTypeInterOrderbook }

func (p *interPreparer) PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure) {
	diag := models.Diagnostics{}
	diag.Set("counterparty", p.cp.OrderID.Hex())
	diag.Set("counterpartyOrderbook", p.cp.Orderbook.Hex())
	diag.SetAmount("clearSize", p.clearSize)
	marketPrice := fixedpoint.Div18(fixedpoint.One(), p.cp.Quote.Ratio)
	diag.SetAmount("marketPrice", marketPrice)

	// The inner takeOrders takes the counterparty on its own book at its
	// quoted terms; it rides inside the outer config as the fill route.
	inner, err := chain.EncodeTakeOrders(models.TakeOrdersConfig{
		MinimumInput:   big.NewInt(1),
		MaximumInput:   fixedpoint.ScaleFrom18(p.cp.Quote.MaxOutput, p.cp.SellToken.Decimals),
		MaximumIORatio: new(big.Int).Set(p.cp.Quote.Ratio),
		Orders:         []models.Pair{p.cp},
	})
	if err != nil {
		return nil, encodeFailure(models.TradeTypeInterOrderbook, diag, err)
	}

	return &PreparedTradeParams{
		Type:        models.TradeTypeInterOrderbook,
		MarketPrice: marketPrice,
		Tx: models.RawTransaction{
			To:       p.addrs.Destination,
			GasPrice: p.args.GasPrice,
		},
		TakeOrders: models.TakeOrdersConfig{
			MinimumInput:   big.NewInt(1),
			MaximumInput:   fixedpoint.ScaleFrom18(p.clearSize, p.order.SellToken.Decimals),
			MaximumIORatio: marketPrice,
			Orders:         []models.Pair{p.order},
			Data:           inner,
		},
		Diag: diag,
	}, nil
}

func (p *interPreparer) SetTransactionData(ctx context.Context, params *PreparedTradeParams, minimumExpectedBounty *big.Int) *models.Failure {
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
			return taskFailure(models.TradeTypeInterOrderbook, params.Diag, err)
		}
	}

	takeOrders, err := chain.EncodeTakeOrders(params.TakeOrders)
	if err != nil {
		return encodeFailure(models.TradeTypeInterOrderbook, params.Diag, err)
	}
	data, err := chain.EncodeArb(p.order.Orderbook, takeOrders, chain.EvalTask{
		Interpreter: p.addrs.Dispair.Interpreter,
		Store:       p.addrs.Dispair.Store,
		Bytecode:    bytecode,
	})
	if err != nil {
		return encodeFailure(models.TradeTypeInterOrderbook, params.Diag, err)
	}
	params.Tx.Data = data
	params.MinimumExpectedBounty = new(big.Int).Set(minimumExpectedBounty)
	return nil
}

func (p *interPreparer) EstimateProfit(marketPrice *big.Int) *big.Int {
	return ClearProfit(p.clearSize, p.cp.Quote.Ratio, p.order.Quote.Ratio, p.args.InputToEthPrice)
}
