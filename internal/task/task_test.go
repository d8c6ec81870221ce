package task

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
)

func params() EnsureBountyParams {
	return EnsureBountyParams{
		InputToEthPrice:  new(big.Int).Mul(big.NewInt(3), fixedpoint.ONE18),
		OutputToEthPrice: fixedpoint.One(),
		MinimumExpected:  big.NewInt(0),
		Sender:           common.HexToAddress("0x4000000000000000000000000000000000000001"),
	}
}

func TestSourceRendersParams(t *testing.T) {
	src := Source(params())
	if !strings.Contains(src, "0x4000000000000000000000000000000000000001") {
		t.Fatalf("sender missing:\n%s", src)
	}
	if !strings.Contains(src, "input-to-eth-price: 3,") {
		t.Fatalf("input price missing:\n%s", src)
	}
	if !strings.Contains(src, ":ensure(") {
		t.Fatalf("guard clause missing:\n%s", src)
	}
}

type stubCaller struct {
	out []byte
	err error
}

func (s *stubCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return s.out, s.err
}

func TestCompileSuccess(t *testing.T) {
	want := []byte{0xaa, 0xbb}
	out, err := parserABI.Methods["parse2"].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	c := &Compiler{Caller: &stubCaller{out: out}}
	got, err := c.EnsureBountyTaskBytecode(context.Background(), params(), chain.Dispair{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 2 || got[0] != 0xaa {
		t.Fatalf("bytecode=%x", got)
	}
}

func TestCompileRevertIsParseFailure(t *testing.T) {
	c := &Compiler{Caller: &stubCaller{err: fmt.Errorf("execution reverted: bad word")}}
	_, err := c.EnsureBountyTaskBytecode(context.Background(), params(), chain.Dispair{})
	var ce *CompileError
	if !errors.As(err, &ce) || !ce.Parse {
		t.Fatalf("err=%v want parse CompileError", err)
	}
}

func TestCompileTransportIsFetchFailure(t *testing.T) {
	c := &Compiler{Caller: &stubCaller{err: fmt.Errorf("connection refused")}}
	_, err := c.EnsureBountyTaskBytecode(context.Background(), params(), chain.Dispair{})
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Parse {
		t.Fatalf("err=%v want fetch CompileError", err)
	}
}

func TestCompileNoCaller(t *testing.T) {
	var c *Compiler
	if _, err := c.EnsureBountyTaskBytecode(context.Background(), params(), chain.Dispair{}); err == nil {
		t.Fatalf("expected error")
	}
}
