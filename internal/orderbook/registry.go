// Package orderbook holds the in-memory view of resting orders the solver
// matches against. Ingestion (subgraph sync, quote refresh) happens
// outside; the registry only answers counterparty lookups, recomputed
// fresh on every call so no round acts on a cached ranking.
package orderbook

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

type Registry struct {
	mu     sync.RWMutex
	orders map[common.Address]map[common.Hash]models.Pair
}

func NewRegistry() *Registry {
	return &Registry{orders: map[common.Address]map[common.Hash]models.Pair{}}
}

func (r *Registry) Add(p models.Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book := r.orders[p.Orderbook]
	if book == nil {
		book = map[common.Hash]models.Pair{}
		r.orders[p.Orderbook] = book
	}
	book[p.OrderID] = p
}

func (r *Registry) Remove(orderbook common.Address, orderID common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if book := r.orders[orderbook]; book != nil {
		delete(book, orderID)
	}
}

// All returns every registered order in a deterministic per-book order.
func (r *Registry) All() []models.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Pair
	for _, book := range r.orders {
		for _, p := range book {
			out = append(out, p)
		}
	}
	sortByRatio(out)
	return out
}

// SameOrderbookCounterparties returns opposite-side orders on the order's
// own book, cheapest first.
func (r *Registry) SameOrderbookCounterparties(order models.Pair) []models.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Pair
	for _, p := range r.orders[order.Orderbook] {
		if isOpposite(order, p) {
			out = append(out, p)
		}
	}
	sortByRatio(out)
	return out
}

// OtherOrderbookCounterparties returns opposite-side orders on every other
// book, cheapest first.
func (r *Registry) OtherOrderbookCounterparties(order models.Pair) []models.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Pair
	for book, orders := range r.orders {
		if book == order.Orderbook {
			continue
		}
		for _, p := range orders {
			if isOpposite(order, p) {
				out = append(out, p)
			}
		}
	}
	sortByRatio(out)
	return out
}

// CounterpartiesAgainstBaseTokens groups orders that sell the order's buy
// token against some third token, keyed by that base token. These are the
// candidates reachable by routing the order's output through the base.
func (r *Registry) CounterpartiesAgainstBaseTokens(order models.Pair) map[common.Address][]models.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[common.Address][]models.Pair{}
	for _, book := range r.orders {
		for _, p := range book {
			if p.OrderID == order.OrderID {
				continue
			}
			if p.SellToken.Address != order.BuyToken.Address {
				continue
			}
			if p.BuyToken.Address == order.SellToken.Address {
				// Direct opposite; belongs to the intra/inter paths.
				continue
			}
			base := p.BuyToken.Address
			out[base] = append(out[base], p)
		}
	}
	for base := range out {
		sortByRatio(out[base])
	}
	return out
}

func isOpposite(order, candidate models.Pair) bool {
	return candidate.OrderID != order.OrderID &&
		candidate.SellToken.Address == order.BuyToken.Address &&
		candidate.BuyToken.Address == order.SellToken.Address
}

func sortByRatio(pairs []models.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		qi, qj := pairs[i].Quote, pairs[j].Quote
		if qi == nil || qj == nil {
			return qj == nil && qi != nil
		}
		return qi.Ratio.Cmp(qj.Ratio) < 0
	})
}
