package solver

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.ONE18)
}

// div of two plain int64s as a 1e18 ratio, e.g. ratio(1,2) = 0.5e18.
func ratio(num, den int64) *big.Int {
	out := new(big.Int).Mul(big.NewInt(num), fixedpoint.ONE18)
	return out.Quo(out, big.NewInt(den))
}

var (
	bookA   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bookB   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	ownerA  = common.HexToAddress("0x2000000000000000000000000000000000000001")
	ownerB  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	tokenA  = models.TokenMeta{Address: common.HexToAddress("0x3000000000000000000000000000000000000001"), Decimals: 18, Symbol: "AAA"}
	tokenB  = models.TokenMeta{Address: common.HexToAddress("0x3000000000000000000000000000000000000002"), Decimals: 18, Symbol: "BBB"}
	tokenC  = models.TokenMeta{Address: common.HexToAddress("0x3000000000000000000000000000000000000003"), Decimals: 18, Symbol: "CCC"}
	sender  = common.HexToAddress("0x4000000000000000000000000000000000000001")
	destArb = common.HexToAddress("0x5000000000000000000000000000000000000001")
)

func testOrder() models.Pair {
	return models.Pair{
		Orderbook: bookA,
		OrderID:   common.HexToHash("0x01"),
		Owner:     ownerA,
		Version:   1,
		SellToken: tokenA,
		BuyToken:  tokenB,
		Quote:     &models.OrderQuote{Ratio: e18(2), MaxOutput: e18(10)},
	}
}

func testArgs(order models.Pair) TradeArgs {
	return TradeArgs{
		Order:              order,
		Sender:             sender,
		InputToEthPrice:    e18(3),
		OutputToEthPrice:   e18(1),
		BlockNumber:        500,
		GasPrice:           big.NewInt(1),
		GasCoveragePct:     big.NewInt(100),
		GasLimitMultiplier: 100,
	}
}

// counterparty resting opposite the test order: sells tokenB for tokenA.
func counterOrder(id byte, owner common.Address, r, maxOutput *big.Int) models.Pair {
	return models.Pair{
		Orderbook: bookA,
		OrderID:   common.HexToHash(fmt.Sprintf("0x%02x", id)),
		Owner:     owner,
		Version:   1,
		SellToken: tokenB,
		BuyToken:  tokenA,
		Quote:     &models.OrderQuote{Ratio: r, MaxOutput: maxOutput},
	}
}

func contextErr() error { return fmt.Errorf("connection refused") }

type stubExec struct {
	mu       sync.Mutex
	calls    int
	gasCosts []*big.Int
	errs     []error
}

func (s *stubExec) DryRun(ctx context.Context, from common.Address, tx models.RawTransaction, gasPrice *big.Int, gasLimitMultiplier uint64) (*models.DryRunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	cost := big.NewInt(1000)
	if i < len(s.gasCosts) && s.gasCosts[i] != nil {
		cost = s.gasCosts[i]
	}
	return &models.DryRunResult{
		Estimation:       models.GasEstimation{Gas: 21000, GasPrice: gasPrice, TotalGasCost: new(big.Int).Set(cost)},
		EstimatedGasCost: new(big.Int).Set(cost),
	}, nil
}

func (s *stubExec) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubContracts struct {
	missing map[models.TradeType]bool
}

func (s *stubContracts) AddressesForTrade(order models.Pair, t models.TradeType) *chain.TradeAddresses {
	if s != nil && s.missing[t] {
		return nil
	}
	return &chain.TradeAddresses{Destination: destArb}
}

type stubCompiler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubCompiler) EnsureBountyTaskBytecode(ctx context.Context, p task.EnsureBountyParams, dispair chain.Dispair) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte{0x01, 0x02}, nil
}

type stubRoutes struct {
	mu           sync.Mutex
	quoteFn      func(req models.QuoteRequest) (*models.Quote, error)
	largestFn    func(req models.QuoteRequest, orderRatio *big.Int) *big.Int
	quoteCalls   int
	largestCalls int
}

func (s *stubRoutes) TryQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	s.mu.Lock()
	s.quoteCalls++
	s.mu.Unlock()
	return s.quoteFn(req)
}

func (s *stubRoutes) FindLargestTradeSize(ctx context.Context, req models.QuoteRequest, orderRatio *big.Int) *big.Int {
	s.mu.Lock()
	s.largestCalls++
	s.mu.Unlock()
	if s.largestFn == nil {
		return nil
	}
	return s.largestFn(req, orderRatio)
}

type stubOrders struct {
	same  []models.Pair
	other []models.Pair
	bases map[common.Address][]models.Pair
}

func (s *stubOrders) SameOrderbookCounterparties(order models.Pair) []models.Pair  { return s.same }
func (s *stubOrders) OtherOrderbookCounterparties(order models.Pair) []models.Pair { return s.other }
func (s *stubOrders) CounterpartiesAgainstBaseTokens(order models.Pair) map[common.Address][]models.Pair {
	return s.bases
}

type stubBalances struct {
	balances map[common.Address]*big.Int
	err      error
}

func (s *stubBalances) ERC20BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if s.err != nil {
		return nil, s.err
	}
	if b, ok := s.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}
