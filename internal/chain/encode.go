package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// EvalTask is the post-execution bounty guard attached to every candidate
// transaction: the destination contract runs Bytecode against the dispair
// after the trade and reverts unless the signer netted the floor.
type EvalTask struct {
	Interpreter common.Address
	Store       common.Address
	Bytecode    []byte
}

const arbABIJSON = `[
  {"type":"function","name":"arb3","inputs":[
    {"name":"orderbook","type":"address"},
    {"name":"takeOrders","type":"bytes"},
    {"name":"task","type":"tuple","components":[
      {"name":"interpreter","type":"address"},
      {"name":"store","type":"address"},
      {"name":"bytecode","type":"bytes"}]}]},
  {"type":"function","name":"clear2","inputs":[
    {"name":"aliceOrderId","type":"bytes32"},
    {"name":"bobOrderId","type":"bytes32"},
    {"name":"clearConfig","type":"tuple","components":[
      {"name":"maximumInput","type":"uint256"},
      {"name":"bountyFloor","type":"uint256"}]},
    {"name":"task","type":"tuple","components":[
      {"name":"interpreter","type":"address"},
      {"name":"store","type":"address"},
      {"name":"bytecode","type":"bytes"}]}]}
]`

var arbABI = mustABI(arbABIJSON)

var takeOrdersArgs = buildTakeOrdersArgs()

func buildTakeOrdersArgs() abi.Arguments {
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	ordersT, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "orderbook", Type: "address"},
		{Name: "orderId", Type: "bytes32"},
		{Name: "owner", Type: "address"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "minimumInput", Type: uint256T},
		{Name: "maximumInput", Type: uint256T},
		{Name: "maximumIORatio", Type: uint256T},
		{Name: "orders", Type: ordersT},
		{Name: "data", Type: bytesT},
	}
}

type orderRef struct {
	Orderbook common.Address
	OrderId   [32]byte
	Owner     common.Address
}

// EncodeTakeOrders ABI-encodes a takeOrders configuration. Amounts must
// already be rescaled to the tokens' native decimals by the caller.
func EncodeTakeOrders(cfg models.TakeOrdersConfig) ([]byte, error) {
	refs := make([]orderRef, len(cfg.Orders))
	for i, o := range cfg.Orders {
		refs[i] = orderRef{Orderbook: o.Orderbook, OrderId: o.OrderID, Owner: o.Owner}
	}
	data := cfg.Data
	if data == nil {
		data = []byte{}
	}
	out, err := takeOrdersArgs.Pack(cfg.MinimumInput, cfg.MaximumInput, cfg.MaximumIORatio, refs, data)
	if err != nil {
		return nil, fmt.Errorf("encode takeOrders: %w", err)
	}
	return out, nil
}

var routeLegArgs = buildRouteLegArgs()

func buildRouteLegArgs() abi.Arguments {
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "route", Type: bytesT},
		{Name: "takeOrders", Type: bytesT},
	}
}

// EncodeRouteLeg packs a swap route together with the nested takeOrders
// that spends its proceeds. Used by trades that hop through a base token
// before taking a counterparty order.
func EncodeRouteLeg(route, takeOrders []byte) ([]byte, error) {
	if route == nil {
		route = []byte{}
	}
	out, err := routeLegArgs.Pack(route, takeOrders)
	if err != nil {
		return nil, fmt.Errorf("encode route leg: %w", err)
	}
	return out, nil
}

type abiEvalTask struct {
	Interpreter common.Address
	Store       common.Address
	Bytecode    []byte
}

// EncodeArb builds arb3 calldata for router, inter-orderbook and raindex
// trades.
func EncodeArb(orderbook common.Address, takeOrders []byte, task EvalTask) ([]byte, error) {
	out, err := arbABI.Pack("arb3", orderbook, takeOrders, abiEvalTask(task))
	if err != nil {
		return nil, fmt.Errorf("encode arb3: %w", err)
	}
	return out, nil
}

type clearConfig struct {
	MaximumInput *big.Int
	BountyFloor  *big.Int
}

// EncodeClear builds clear2 calldata for intra-orderbook trades that match
// two orders on the same book.
func EncodeClear(aliceID, bobID common.Hash, maximumInput, bountyFloor *big.Int, task EvalTask) ([]byte, error) {
	out, err := arbABI.Pack("clear2", [32]byte(aliceID), [32]byte(bobID),
		clearConfig{MaximumInput: maximumInput, BountyFloor: bountyFloor}, abiEvalTask(task))
	if err != nil {
		return nil, fmt.Errorf("encode clear2: %w", err)
	}
	return out, nil
}
