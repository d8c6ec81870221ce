// Package router supplies swap routes from external aggregator backends
// and selects the best one per request. Nothing is cached across calls:
// every quote reflects the backend's current view.
package router

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// ErrNoRoute is returned when no backend can route the pair at the
// requested size.
var ErrNoRoute = errors.New("router: no route")

// Backend is one aggregator (route-processor style, batch-swap style,
// stabull style).
type Backend interface {
	Kind() models.RouteKind
	Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
}

// Composite fans a quote request across all configured backends and keeps
// the one with the highest amount out.
type Composite struct {
	Backends []Backend
	Logger   *zap.Logger
}

// TryQuote returns the best route for the pair at the requested size, or
// ErrNoRoute when every backend comes up empty. A backend transport error
// is surfaced only when no other backend produced a route.
func (c *Composite) TryQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if c == nil || len(c.Backends) == 0 {
		return nil, ErrNoRoute
	}

	type answer struct {
		quote *models.Quote
		err   error
	}
	answers := make([]answer, len(c.Backends))
	var wg sync.WaitGroup
	for i, b := range c.Backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			q, err := b.Quote(ctx, req)
			answers[i] = answer{quote: q, err: err}
		}(i, b)
	}
	wg.Wait()

	var best *models.Quote
	var lastErr error
	for i, a := range answers {
		if a.err != nil {
			if !errors.Is(a.err, ErrNoRoute) {
				lastErr = a.err
				if c.Logger != nil {
					c.Logger.Debug("router backend failed",
						zap.String("backend", string(c.Backends[i].Kind())),
						zap.Error(a.err))
				}
			}
			continue
		}
		if a.quote == nil || a.quote.AmountOut == nil {
			continue
		}
		if best == nil || a.quote.AmountOut.Cmp(best.AmountOut) > 0 {
			best = a.quote
		}
	}
	if best != nil {
		return best, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoRoute
}

// FindLargestTradeSize binary-searches the largest input in
// (0, req.AmountIn] whose quoted price still clears orderRatio. Returns
// nil when even a minimal slice cannot clear. Re-quotes skip pool
// refetching; the search runs against one snapshot of liquidity.
func (c *Composite) FindLargestTradeSize(ctx context.Context, req models.QuoteRequest, orderRatio *big.Int) *big.Int {
	if c == nil || req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil
	}
	lo := big.NewInt(0)
	hi := new(big.Int).Set(req.AmountIn)
	probe := req
	probe.SkipFetch = true

	for i := 0; i < 32; i++ {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		if mid.Cmp(lo) == 0 {
			break
		}
		probe.AmountIn = mid
		q, err := c.TryQuote(ctx, probe)
		if err == nil && q.Price != nil && q.Price.Cmp(orderRatio) >= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	if lo.Sign() <= 0 {
		return nil
	}
	return lo
}
