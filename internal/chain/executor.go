package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// EthBackend is the slice of the RPC client the executor needs.
// *ethclient.Client satisfies it.
type EthBackend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// L1Pricer estimates the separate data-availability charge on rollups.
// Nil on chains without one.
type L1Pricer interface {
	L1Cost(ctx context.Context, data []byte) (l1GasPrice, l1Cost *big.Int, err error)
}

// Executor simulates candidate transactions offchain and snapshots chain
// state once per round.
type Executor struct {
	Backend EthBackend
	L1      L1Pricer
	Logger  *zap.Logger
}

// DryRun estimates gas for the transaction and verifies it does not revert
// at the latest state. gasLimitMultiplier is a percentage (100 = no
// buffer) applied to the raw estimate before costing.
func (e *Executor) DryRun(ctx context.Context, from common.Address, tx models.RawTransaction, gasPrice *big.Int, gasLimitMultiplier uint64) (*models.DryRunResult, error) {
	msg := ethereum.CallMsg{
		From:     from,
		To:       &tx.To,
		Data:     tx.Data,
		Value:    tx.Value,
		GasPrice: gasPrice,
	}
	gas, err := e.Backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, Classify(err)
	}
	if _, err := e.Backend.CallContract(ctx, msg, nil); err != nil {
		return nil, Classify(err)
	}

	if gasLimitMultiplier == 0 {
		gasLimitMultiplier = 100
	}
	gasLimit := gas * gasLimitMultiplier / 100
	total := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)

	est := models.GasEstimation{
		Gas:          gasLimit,
		GasPrice:     new(big.Int).Set(gasPrice),
		TotalGasCost: new(big.Int).Set(total),
	}
	cost := new(big.Int).Set(total)
	if e.L1 != nil {
		l1GasPrice, l1Cost, err := e.L1.L1Cost(ctx, tx.Data)
		if err != nil {
			return nil, Classify(err)
		}
		est.L1GasPrice = l1GasPrice
		est.L1Cost = l1Cost
		if l1Cost != nil {
			cost.Add(cost, l1Cost)
			est.TotalGasCost.Add(est.TotalGasCost, l1Cost)
		}
	}

	return &models.DryRunResult{Estimation: est, EstimatedGasCost: cost}, nil
}

// Ping verifies the RPC endpoint answers.
func (e *Executor) Ping(ctx context.Context) error {
	_, err := e.Backend.BlockNumber(ctx)
	if err != nil {
		return Classify(err)
	}
	return nil
}

// Snapshot reads the block number and gas price once; every strategy in a
// round evaluates against this single chain snapshot.
func (e *Executor) Snapshot(ctx context.Context) (uint64, *big.Int, error) {
	blockNumber, err := e.Backend.BlockNumber(ctx)
	if err != nil {
		return 0, nil, Classify(err)
	}
	gasPrice, err := e.Backend.SuggestGasPrice(ctx)
	if err != nil {
		return 0, nil, Classify(err)
	}
	return blockNumber, gasPrice, nil
}
