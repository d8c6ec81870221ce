package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// Submitter receives converged trades. Signing and broadcasting live
// behind this boundary.
type Submitter interface {
	Submit(ctx context.Context, trade *models.Trade) error
}

// LogSubmitter records trades instead of broadcasting them. The default
// when no onchain submitter is wired.
type LogSubmitter struct {
	Logger *zap.Logger
}

func (s *LogSubmitter) Submit(ctx context.Context, trade *models.Trade) error {
	if s == nil || s.Logger == nil || trade == nil {
		return nil
	}
	s.Logger.Info("trade ready",
		zap.String("type", string(trade.Type)),
		zap.String("to", trade.Tx.To.Hex()),
		zap.Uint64("oppBlock", trade.OppBlockNumber),
		zap.String("profit", fixedpoint.Format(trade.EstimatedProfit)),
		zap.String("gasCost", trade.EstimatedGasCost.String()),
		zap.Int("calldataBytes", len(trade.Tx.Data)))
	return nil
}
