// Package solver is the decision core: it evaluates trading strategies
// against one resting order per solve round, converges each candidate
// trade through simulation, and selects the single most profitable
// result.
package solver

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

// RouteProvider supplies swap routes. Implemented by router.Composite.
type RouteProvider interface {
	TryQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
	FindLargestTradeSize(ctx context.Context, req models.QuoteRequest, orderRatio *big.Int) *big.Int
}

// CounterpartySource answers counterparty lookups. Implemented by
// orderbook.Registry.
type CounterpartySource interface {
	SameOrderbookCounterparties(order models.Pair) []models.Pair
	OtherOrderbookCounterparties(order models.Pair) []models.Pair
	CounterpartiesAgainstBaseTokens(order models.Pair) map[common.Address][]models.Pair
}

// DryRunExecutor simulates a candidate transaction offchain. Implemented
// by chain.Executor.
type DryRunExecutor interface {
	DryRun(ctx context.Context, from common.Address, tx models.RawTransaction, gasPrice *big.Int, gasLimitMultiplier uint64) (*models.DryRunResult, error)
}

// BalanceReader reads signer ERC-20 balances. Implemented by
// chain.Executor.
type BalanceReader interface {
	ERC20BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// TaskCompiler compiles the ensure-bounty guard. Implemented by
// task.Compiler.
type TaskCompiler interface {
	EnsureBountyTaskBytecode(ctx context.Context, p task.EnsureBountyParams, dispair chain.Dispair) ([]byte, error)
}

// ContractsResolver maps a trade type to its destination contract and
// dispair. Implemented by chain.Contracts.
type ContractsResolver interface {
	AddressesForTrade(order models.Pair, t models.TradeType) *chain.TradeAddresses
}

// Strategy is one way of finding a counter-trade for an order.
type Strategy interface {
	Name() string
	Type() models.TradeType
	Solve(ctx context.Context, args TradeArgs) (*models.Trade, *models.Failure)
}

// TradeArgs is the shared, read-only round context passed by value into
// every strategy and simulation attempt. The block number and gas price
// are snapshotted once per round so all strategies evaluate against one
// consistent chain state.
type TradeArgs struct {
	Order              models.Pair
	Sender             common.Address
	InputToEthPrice    *big.Int
	OutputToEthPrice   *big.Int
	BlockNumber        uint64
	GasPrice           *big.Int
	GasCoveragePct     *big.Int
	GasLimitMultiplier uint64
	MaxCandidates      int
}

// ZeroCoverage reports whether the bounty guard is disabled ("0"
// coverage): the guard bytecode becomes a no-op and the convergence loop
// accepts the first clean dry run.
func (a TradeArgs) ZeroCoverage() bool {
	return a.GasCoveragePct == nil || a.GasCoveragePct.Sign() == 0
}

// TopCandidates bounds how many ranked counterparties each strategy
// explores per round.
func (a TradeArgs) TopCandidates() int {
	if a.MaxCandidates <= 0 {
		return 3
	}
	return a.MaxCandidates
}
