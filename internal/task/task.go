// Package task produces the "ensure bounty" guard evaluated onchain after
// a candidate trade executes. The guard's bytecode is compiled by the
// interpreter deployer's parser; the solver only generates the source and
// classifies compile failures.
package task

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
)

// EnsureBountyParams parameterizes the guard source. Prices are
// 1e18-scaled ETH prices of the order's input and output tokens;
// MinimumExpected is the ETH-equivalent floor the sender must net.
type EnsureBountyParams struct {
	InputToEthPrice  *big.Int
	OutputToEthPrice *big.Int
	MinimumExpected  *big.Int
	Sender           common.Address
}

// Source renders the guard task source. The expression sums the sender's
// post-trade balance increases converted to ETH and halts the transaction
// unless the total covers the floor.
func Source(p EnsureBountyParams) string {
	var b strings.Builder
	b.WriteString("/* ensure bounty */\n")
	fmt.Fprintf(&b, "sender: %s,\n", strings.ToLower(p.Sender.Hex()))
	fmt.Fprintf(&b, "input-to-eth-price: %s,\n", fixedpoint.Format(p.InputToEthPrice))
	fmt.Fprintf(&b, "output-to-eth-price: %s,\n", fixedpoint.Format(p.OutputToEthPrice))
	fmt.Fprintf(&b, "minimum-expected: %s,\n", fixedpoint.Format(p.MinimumExpected))
	b.WriteString("total-bounty-eth: add(\n")
	b.WriteString("  mul(input-to-eth-price uniswap-v2-quote<0>(sender input-token))\n")
	b.WriteString("  mul(output-to-eth-price uniswap-v2-quote<0>(sender output-token))\n")
	b.WriteString("),\n")
	b.WriteString(":ensure(greater-than-or-equal-to(total-bounty-eth minimum-expected) \"minimum sender output\");")
	return b.String()
}

// CompileError reports a failed bytecode compilation. Parse is true when
// the parser itself rejected the source, which is deterministic and
// therefore non-transient; a false Parse means the fetch failed and the
// next round may succeed.
type CompileError struct {
	Parse bool
	Err   error
}

func (e *CompileError) Error() string {
	if e.Parse {
		return fmt.Sprintf("task parse failed: %v", e.Err)
	}
	return fmt.Sprintf("task compile fetch failed: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

const parserABIJSON = `[{"type":"function","name":"parse2","stateMutability":"view","inputs":[{"name":"data","type":"bytes"}],"outputs":[{"name":"bytecode","type":"bytes"}]}]`

var parserABI = mustABI(parserABIJSON)

func mustABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ContractCaller is the read-call slice of the RPC client.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Compiler compiles guard sources through the deployer's onchain parser.
type Compiler struct {
	Caller ContractCaller
}

// EnsureBountyTaskBytecode compiles the guard for the given params against
// the trade's dispair.
func (c *Compiler) EnsureBountyTaskBytecode(ctx context.Context, p EnsureBountyParams, dispair chain.Dispair) ([]byte, error) {
	if c == nil || c.Caller == nil {
		return nil, &CompileError{Err: fmt.Errorf("no parser caller configured")}
	}
	data, err := parserABI.Pack("parse2", []byte(Source(p)))
	if err != nil {
		return nil, &CompileError{Parse: true, Err: err}
	}
	deployer := dispair.Deployer
	out, err := c.Caller.CallContract(ctx, ethereum.CallMsg{To: &deployer, Data: data}, nil)
	if err != nil {
		classified := chain.Classify(err)
		var revert *chain.RevertError
		if errors.As(classified, &revert) {
			// The parser rejected the source: deterministic.
			return nil, &CompileError{Parse: true, Err: classified}
		}
		return nil, &CompileError{Err: classified}
	}
	vals, err := parserABI.Unpack("parse2", out)
	if err != nil {
		return nil, &CompileError{Parse: true, Err: err}
	}
	bytecode, ok := vals[0].([]byte)
	if !ok {
		return nil, &CompileError{Parse: true, Err: fmt.Errorf("unexpected parse2 return type %T", vals[0])}
	}
	return bytecode, nil
}
