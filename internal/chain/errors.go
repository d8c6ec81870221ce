package chain

import (
	"fmt"
	"strings"
)

// RevertError wraps an execution revert surfaced by a dry run. Reverts are
// the expected "no opportunity" signal and are never escalated.
type RevertError struct {
	Err error
}

func (e *RevertError) Error() string { return fmt.Sprintf("execution reverted: %v", e.Err) }
func (e *RevertError) Unwrap() error { return e.Err }

// NodeError wraps a transport or node fault. These are infrastructure
// failures: deterministic from the solver's point of view and worth
// alerting on, unlike reverts.
type NodeError struct {
	Err error
}

func (e *NodeError) Error() string { return fmt.Sprintf("node error: %v", e.Err) }
func (e *NodeError) Unwrap() error { return e.Err }

// Classify splits an RPC error into revert vs node fault. Geth and most
// providers embed "execution reverted" in the message for both eth_call
// and eth_estimateGas failures.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert") {
		return &RevertError{Err: err}
	}
	return &NodeError{Err: err}
}
