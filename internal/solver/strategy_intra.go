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

// IntraOrderbookStrategy matches the order against opposite-side orders
// resting on the same book. The two orders clear directly onchain; the
// solver's profit is the bounty left between the two ratios.
type IntraOrderbookStrategy struct {
	Orders    CounterpartySource
	Balances  BalanceReader
	Contracts ContractsResolver
	Compiler  TaskCompiler
	Executor  DryRunExecutor
	Logger    *zap.Logger
}

func (s *IntraOrderbookStrategy) Name() string           { return "intraOrderbook" }
func (s *IntraOrderbookStrategy) Type() models.TradeType { return models.TradeTypeIntraOrderbook }

func (s *IntraOrderbookStrategy) Solve(ctx context.Context, args TradeArgs) (*models.Trade, *models.Failure) {
	order := args.Order
	addrs := s.Contracts.AddressesForTrade(order, models.TradeTypeIntraOrderbook)
	if addrs == nil {
		err := fmt.Errorf("no dispair configured for intra-orderbook trades")
		f := models.NewFailure(s.Type(), models.HaltUndefinedTradeDestinationAddress, err)
		f.NonTransient = err
		return nil, f
	}

	all := s.Orders.SameOrderbookCounterparties(order)
	var candidates []models.Pair
	for _, cp := range all {
		if cp.Owner == order.Owner {
			continue
		}
		// The two ratios multiply below one exactly when clearing them
		// against each other leaves a positive spread.
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
		return nil, f
	}

	inputBal, err := s.Balances.ERC20BalanceOf(ctx, order.BuyToken.Address, args.Sender)
	if err != nil {
		return nil, s.balanceFailure(order.BuyToken, err)
	}
	outputBal, err := s.Balances.ERC20BalanceOf(ctx, order.SellToken.Address, args.Sender)
	if err != nil {
		return nil, s.balanceFailure(order.SellToken, err)
	}
	inputBal18 := fixedpoint.Scale18(inputBal, order.BuyToken.Decimals)
	outputBal18 := fixedpoint.Scale18(outputBal, order.SellToken.Decimals)

	preparers := make([]TradePreparer, 0, len(candidates))
	for _, cp := range candidates {
		size := clearSize(order, cp, inputBal18, outputBal18)
		if size.Sign() <= 0 {
			continue
		}
		preparers = append(preparers, &intraPreparer{
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

func (s *IntraOrderbookStrategy) balanceFailure(token models.TokenMeta, err error) *models.Failure {
	f := models.NewFailure(s.Type(), models.HaltNoOpportunity, err)
	f.Diag.Set("token", token.Symbol)
	f.Diag.Set("error", err.Error())
	f.NonTransient = err
	return f
}

// clearSize is the largest output-token amount both orders and both signer
// balances can carry. The counterparty absorbs its max output times its
// ratio; the signer's input balance bounds what the order side can pay
// out against, its output balance bounds the direct top-up.
func clearSize(order, cp models.Pair, inputBal18, outputBal18 *big.Int) *big.Int {
	size := fixedpoint.Min(order.Quote.MaxOutput, fixedpoint.Mul18(cp.Quote.MaxOutput, cp.Quote.Ratio))
	if order.Quote.Ratio.Sign() > 0 {
		size = fixedpoint.Min(size, fixedpoint.Div18(inputBal18, order.Quote.Ratio))
	}
	return fixedpoint.Min(size, outputBal18)
}

type intraPreparer struct {
	strategy  *IntraOrderbookStrategy
	order     models.Pair
	cp        models.Pair
	args      TradeArgs
	addrs     *chain.TradeAddresses
	clearSize *big.Int
}

func (p *intraPreparer) Type() models.TradeType { return models.TradeTypeIntraOrderbook }

func (p *intraPreparer) PrepareTradeParams(ctx context.Context) (*PreparedTradeParams, *models.Failure) {
	diag := models.Diagnostics{}
	diag.Set("counterparty", p.cp.OrderID.Hex())
	diag.SetAmount("clearSize", p.clearSize)
	marketPrice := fixedpoint.Div18(fixedpoint.One(), p.cp.Quote.Ratio)
	diag.SetAmount("marketPrice", marketPrice)

	return &PreparedTradeParams{
		Type:        models.TradeTypeIntraOrderbook,
		MarketPrice: marketPrice,
		Tx: models.RawTransaction{
			// clear2 executes on the book itself; config supplies only
			// the dispair.
			To:       p.order.Orderbook,
			GasPrice: p.args.GasPrice,
		},
		Diag: diag,
	}, nil
}

func (p *intraPreparer) SetTransactionData(ctx context.Context, params *PreparedTradeParams, minimumExpectedBounty *big.Int) *models.Failure {
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
			return taskFailure(models.TradeTypeIntraOrderbook, params.Diag, err)
		}
	}

	data, err := chain.EncodeClear(p.order.OrderID, p.cp.OrderID,
		fixedpoint.ScaleFrom18(p.clearSize, p.order.SellToken.Decimals),
		minimumExpectedBounty,
		chain.EvalTask{
			Interpreter: p.addrs.Dispair.Interpreter,
			Store:       p.addrs.Dispair.Store,
			Bytecode:    bytecode,
		})
	if err != nil {
		return encodeFailure(models.TradeTypeIntraOrderbook, params.Diag, err)
	}
	params.Tx.Data = data
	params.MinimumExpectedBounty = new(big.Int).Set(minimumExpectedBounty)
	return nil
}

func (p *intraPreparer) EstimateProfit(marketPrice *big.Int) *big.Int {
	return ClearProfit(p.clearSize, p.cp.Quote.Ratio, p.order.Quote.Ratio, p.args.InputToEthPrice)
}
