package service

import (
	"sync"
	"time"
)

// TradeReport is one solved order within a round.
type TradeReport struct {
	OrderID  string `json:"orderId"`
	Type     string `json:"type"`
	Strategy string `json:"strategy"`
	Profit   string `json:"profit"`
	GasCost  string `json:"gasCost"`
}

// FailureReport is one unsolved order within a round, with the per-strategy
// halt reasons.
type FailureReport struct {
	OrderID      string            `json:"orderId"`
	Reasons      map[string]string `json:"reasons"`
	NonTransient string            `json:"nonTransient,omitempty"`
}

// RoundReport is the diagnostic record of one solve round, served over the
// HTTP surface.
type RoundReport struct {
	ID          string          `json:"id"`
	BlockNumber uint64          `json:"blockNumber"`
	GasPrice    string          `json:"gasPrice"`
	StartedAt   time.Time       `json:"startedAt"`
	FinishedAt  time.Time       `json:"finishedAt"`
	Orders      int             `json:"orders"`
	Trades      []TradeReport   `json:"trades"`
	Failures    []FailureReport `json:"failures"`
	Error       string          `json:"error,omitempty"`
}

// reportRing keeps the last N round reports, newest first.
type reportRing struct {
	mu      sync.RWMutex
	reports []RoundReport
	max     int
}

func newReportRing(max int) *reportRing {
	if max <= 0 {
		max = 64
	}
	return &reportRing{max: max}
}

func (r *reportRing) add(report RoundReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append([]RoundReport{report}, r.reports...)
	if len(r.reports) > r.max {
		r.reports = r.reports[:r.max]
	}
}

func (r *reportRing) recent(n int) []RoundReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.reports) {
		n = len(r.reports)
	}
	out := make([]RoundReport, n)
	copy(out, r.reports[:n])
	return out
}
