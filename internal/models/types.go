package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeType discriminates the strategy (and destination contract) that
// produced a simulation result. Router sub-kinds are refined after route
// discovery.
type TradeType string

const (
	TradeTypeRouter         TradeType = "router"
	TradeTypeRouteProcessor TradeType = "routeProcessor"
	TradeTypeBalancer       TradeType = "balancer"
	TradeTypeStabull        TradeType = "stabull"
	TradeTypeIntraOrderbook TradeType = "intraOrderbook"
	TradeTypeInterOrderbook TradeType = "interOrderbook"
	TradeTypeRaindex        TradeType = "raindex"
)

// RouteKind tags which router backend supplied a quote.
type RouteKind string

const (
	RouteKindRouteProcessor RouteKind = "route-processor"
	RouteKindBalancer       RouteKind = "balancer"
	RouteKindStabull        RouteKind = "stabull"
)

// TradeTypeForRoute maps a route backend kind to the refined trade type.
func TradeTypeForRoute(kind RouteKind) TradeType {
	switch kind {
	case RouteKindBalancer:
		return TradeTypeBalancer
	case RouteKindStabull:
		return TradeTypeStabull
	default:
		return TradeTypeRouteProcessor
	}
}

// TokenMeta is the per-token metadata attached to an order side.
type TokenMeta struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// OrderQuote is the order's live quote, fixed-point scaled by 1e18.
// Ratio is the price of one unit of input per unit of output.
type OrderQuote struct {
	Ratio     *big.Int
	MaxOutput *big.Int
}

// Pair is a resting maker order bundled with its counter-side token
// metadata: the unit of solving.
type Pair struct {
	Orderbook common.Address
	OrderID   common.Hash
	Owner     common.Address
	Version   uint8
	SellToken TokenMeta
	BuyToken  TokenMeta
	Quote     *OrderQuote
}

// QuoteRequest asks a route provider for the best swap route between two
// tokens at a given input size. AmountIn is 1e18-scaled; providers rescale
// to native token decimals themselves.
type QuoteRequest struct {
	FromToken   TokenMeta
	ToToken     TokenMeta
	AmountIn    *big.Int
	GasPrice    *big.Int
	BlockNumber uint64
	SkipFetch   bool
}

// Quote is a route provider's answer: the amount out and the effective
// 1e18-scaled price for the requested size, plus the encoded route the
// destination contract consumes.
type Quote struct {
	AmountOut   *big.Int
	Price       *big.Int
	Kind        RouteKind
	RouteVisual []string
	RouteData   []byte
}

// RawTransaction is the ready-to-sign transaction skeleton the simulator
// converges on. Data is reassigned across convergence iterations.
type RawTransaction struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasPrice *big.Int
	Gas      uint64
}

// TakeOrdersConfig mirrors the orderbook's takeOrders argument struct for
// calldata encoding.
type TakeOrdersConfig struct {
	MinimumInput   *big.Int
	MaximumInput   *big.Int
	MaximumIORatio *big.Int
	Orders         []Pair
	Data           []byte
}

// GasEstimation is the dry-run executor's gas breakdown. L1 fields are set
// only on chains with a separate data-availability charge.
type GasEstimation struct {
	Gas          uint64
	GasPrice     *big.Int
	TotalGasCost *big.Int
	L1GasPrice   *big.Int
	L1Cost       *big.Int
}

// DryRunResult is a successful offchain simulation of a transaction.
type DryRunResult struct {
	Estimation       GasEstimation
	EstimatedGasCost *big.Int
}
