package service

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/logger"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/solver"
)

// OrderSource lists the orders a round solves. Implemented by
// orderbook.Registry.
type OrderSource interface {
	All() []models.Pair
}

// ChainSnapshotter reads the block number and gas price once per round.
// Implemented by chain.Executor.
type ChainSnapshotter interface {
	Snapshot(ctx context.Context) (uint64, *big.Int, error)
}

// TradeSolver picks the best trade for one order. Implemented by
// solver.Dispatcher.
type TradeSolver interface {
	Solve(ctx context.Context, args solver.TradeArgs) (*models.Trade, *solver.AggregateFailure)
}

// RoundService drives one solve round per schedule tick: snapshot chain
// state, derive ETH prices, dispatch every order, hand winners to the
// submitter, and record the round for the HTTP surface.
type RoundService struct {
	Orders    OrderSource
	Chain     ChainSnapshotter
	Router    solver.RouteProvider
	Solver    TradeSolver
	Submitter Submitter
	Logger    *zap.Logger

	Sender             common.Address
	NativeWrapped      common.Address
	GasCoveragePct     *big.Int
	GasLimitMultiplier uint64
	TopCandidates      int
	Timeout            time.Duration

	ring *reportRing
}

// WithHistory sets the report ring. Call once before the first round.
func (s *RoundService) WithHistory(history int) *RoundService {
	s.ring = newReportRing(history)
	return s
}

// Recent returns up to n of the latest round reports, newest first.
func (s *RoundService) Recent(n int) []RoundReport {
	if s == nil || s.ring == nil {
		return nil
	}
	return s.ring.recent(n)
}

// RunOnce executes a single round. An error means the round could not even
// start; per-order outcomes land in the report instead.
func (s *RoundService) RunOnce(ctx context.Context) error {
	if s == nil || s.Orders == nil || s.Chain == nil || s.Solver == nil {
		return nil
	}
	if s.ring == nil {
		s.ring = newReportRing(0)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	report := RoundReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	blockNumber, gasPrice, err := s.Chain.Snapshot(ctx)
	if err != nil {
		report.FinishedAt = time.Now().UTC()
		report.Error = err.Error()
		s.ring.add(report)
		return err
	}
	report.BlockNumber = blockNumber
	report.GasPrice = gasPrice.String()
	log := logger.ForRound(s.Logger, report.ID, blockNumber)

	orders := s.Orders.All()
	report.Orders = len(orders)
	prices := map[common.Address]*big.Int{}
	for _, order := range orders {
		args := solver.TradeArgs{
			Order:              order,
			Sender:             s.Sender,
			InputToEthPrice:    s.ethPrice(ctx, prices, order.BuyToken, blockNumber, gasPrice),
			OutputToEthPrice:   s.ethPrice(ctx, prices, order.SellToken, blockNumber, gasPrice),
			BlockNumber:        blockNumber,
			GasPrice:           gasPrice,
			GasCoveragePct:     s.GasCoveragePct,
			GasLimitMultiplier: s.GasLimitMultiplier,
			MaxCandidates:      s.TopCandidates,
		}

		trade, fail := s.Solver.Solve(ctx, args)
		if trade != nil {
			report.Trades = append(report.Trades, TradeReport{
				OrderID:  order.OrderID.Hex(),
				Type:     string(trade.Type),
				Strategy: asString(trade.Diag["winner"]),
				Profit:   fixedpoint.Format(trade.EstimatedProfit),
				GasCost:  trade.EstimatedGasCost.String(),
			})
			if s.Submitter != nil {
				if err := s.Submitter.Submit(ctx, trade); err != nil {
					log.Error("submit failed",
						zap.String("order", order.OrderID.Hex()),
						zap.Error(err))
				}
			}
			continue
		}

		fr := FailureReport{
			OrderID: order.OrderID.Hex(),
			Reasons: map[string]string{},
		}
		for name, f := range fail.Failures {
			fr.Reasons[name] = f.Reason.String()
		}
		if fail.NonTransient != nil {
			fr.NonTransient = fail.NonTransient.Error()
			log.Warn("non-transient solve failure",
				zap.String("order", order.OrderID.Hex()),
				zap.Error(fail.NonTransient))
		} else {
			log.Debug("no trade for order",
				zap.String("order", order.OrderID.Hex()),
				zap.String("detail", fail.Error()))
		}
		report.Failures = append(report.Failures, fr)
	}

	report.FinishedAt = time.Now().UTC()
	s.ring.add(report)
	log.Info("round finished",
		zap.Int("orders", report.Orders),
		zap.Int("trades", len(report.Trades)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return nil
}

// ethPrice derives a token's 1e18-scaled price in the chain's native
// currency by quoting one unit against the wrapped native token. Prices
// are cached for the round; an unroutable token prices at zero, which
// zeroes its contribution to profit and bounty floors rather than
// skipping the order.
func (s *RoundService) ethPrice(ctx context.Context, cache map[common.Address]*big.Int, token models.TokenMeta, blockNumber uint64, gasPrice *big.Int) *big.Int {
	if token.Address == s.NativeWrapped {
		return fixedpoint.One()
	}
	if p, ok := cache[token.Address]; ok {
		return new(big.Int).Set(p)
	}
	price := big.NewInt(0)
	if s.Router != nil {
		q, err := s.Router.TryQuote(ctx, models.QuoteRequest{
			FromToken:   token,
			ToToken:     models.TokenMeta{Address: s.NativeWrapped, Decimals: 18, Symbol: "WNATIVE"},
			AmountIn:    fixedpoint.One(),
			GasPrice:    gasPrice,
			BlockNumber: blockNumber,
		})
		if err == nil && q.Price != nil {
			price = q.Price
		}
	}
	cache[token.Address] = price
	return new(big.Int).Set(price)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
