package solver

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

func intraOrder() models.Pair {
	o := testOrder()
	o.Quote = &models.OrderQuote{Ratio: ratio(3, 2), MaxOutput: e18(10)}
	return o
}

func richBalances() *stubBalances {
	return &stubBalances{balances: map[common.Address]*big.Int{
		tokenA.Address: e18(100),
		tokenB.Address: e18(30),
	}}
}

func intraStrategy(orders *stubOrders, balances *stubBalances, exec *stubExec) *IntraOrderbookStrategy {
	return &IntraOrderbookStrategy{
		Orders:    orders,
		Balances:  balances,
		Contracts: &stubContracts{},
		Compiler:  &stubCompiler{},
		Executor:  exec,
	}
}

func TestIntraStrategyClears(t *testing.T) {
	cp := counterOrder(0x10, ownerB, ratio(1, 2), e18(30))
	orders := &stubOrders{same: []models.Pair{cp}}
	exec := &stubExec{}
	s := intraStrategy(orders, richBalances(), exec)
	args := testArgs(intraOrder())
	args.GasCoveragePct = big.NewInt(0)

	trade, fail := s.Solve(context.Background(), args)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if trade.Type != models.TradeTypeIntraOrderbook {
		t.Fatalf("type=%s", trade.Type)
	}
	if trade.Tx.To != bookA {
		t.Fatalf("clear must target the book, got %s", trade.Tx.To)
	}
	// (10/0.5 - 10*1.5) * 3 = 15 ETH
	if trade.EstimatedProfit.Cmp(e18(15)) != 0 {
		t.Fatalf("profit=%s want 15e18", trade.EstimatedProfit)
	}
}

func TestIntraStrategyRatioProductFilter(t *testing.T) {
	// 1.5 * 0.8 = 1.2: no spread, excluded. 1.5 * 0.5 = 0.75: included.
	tooTight := counterOrder(0x11, ownerB, ratio(4, 5), e18(30))
	clearable := counterOrder(0x12, ownerB, ratio(1, 2), e18(30))
	sameOwner := counterOrder(0x13, ownerA, ratio(1, 2), e18(30))
	orders := &stubOrders{same: []models.Pair{tooTight, sameOwner, clearable}}
	exec := &stubExec{}
	s := intraStrategy(orders, richBalances(), exec)
	args := testArgs(intraOrder())
	args.GasCoveragePct = big.NewInt(0)

	trade, fail := s.Solve(context.Background(), args)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	if trade.Diag["counterparty"] != clearable.OrderID.Hex() {
		t.Fatalf("cleared against %v, want %s", trade.Diag["counterparty"], clearable.OrderID.Hex())
	}
}

func TestIntraStrategyNoCandidates(t *testing.T) {
	tooTight := counterOrder(0x11, ownerB, ratio(4, 5), e18(30))
	s := intraStrategy(&stubOrders{same: []models.Pair{tooTight}}, richBalances(), &stubExec{})

	_, fail := s.Solve(context.Background(), testArgs(intraOrder()))
	if fail == nil || fail.Reason != models.HaltNoOpportunity {
		t.Fatalf("fail=%v", fail)
	}
	if fail.NonTransient != nil {
		t.Fatalf("empty market marked non-transient")
	}
}

func TestIntraStrategyBalanceReadErrorNonTransient(t *testing.T) {
	cp := counterOrder(0x10, ownerB, ratio(1, 2), e18(30))
	s := intraStrategy(&stubOrders{same: []models.Pair{cp}}, &stubBalances{err: fmt.Errorf("rpc down")}, &stubExec{})

	_, fail := s.Solve(context.Background(), testArgs(intraOrder()))
	if fail == nil || fail.NonTransient == nil {
		t.Fatalf("balance read fault should be non-transient: %v", fail)
	}
}

func TestIntraStrategyBalanceCapsSize(t *testing.T) {
	cp := counterOrder(0x10, ownerB, ratio(1, 2), e18(30))
	// input balance 3: cap = 3 / 1.5 = 2 output units
	balances := &stubBalances{balances: map[common.Address]*big.Int{
		tokenA.Address: e18(100),
		tokenB.Address: e18(3),
	}}
	exec := &stubExec{}
	s := intraStrategy(&stubOrders{same: []models.Pair{cp}}, balances, exec)
	args := testArgs(intraOrder())
	args.GasCoveragePct = big.NewInt(0)

	trade, fail := s.Solve(context.Background(), args)
	if fail != nil {
		t.Fatalf("fail=%v", fail)
	}
	// (2/0.5 - 2*1.5) * 3 = 3 ETH
	if trade.EstimatedProfit.Cmp(e18(3)) != 0 {
		t.Fatalf("profit=%s want 3e18", trade.EstimatedProfit)
	}
}

func TestIntraStrategyMissingDispairConfig(t *testing.T) {
	s := intraStrategy(&stubOrders{}, richBalances(), &stubExec{})
	s.Contracts = &stubContracts{missing: map[models.TradeType]bool{models.TradeTypeIntraOrderbook: true}}

	_, fail := s.Solve(context.Background(), testArgs(intraOrder()))
	if fail == nil || fail.Reason != models.HaltUndefinedTradeDestinationAddress {
		t.Fatalf("fail=%v", fail)
	}
}
