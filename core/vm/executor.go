package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core/state"
	"github.com/clydemeng/authrelay/params"
)

// Executor is an abstraction over the execution backend that runs relay
// invocations. It hides the concrete host behind a common interface so that
// the CLI and tests can run against the in-process emulator today and a
// remote chain backend later without branching.
type Executor interface {
	// Engine returns a short human identifier ("emulator", ...).
	Engine() string

	// Execute runs one invocation of the contract installed at to and
	// returns its result. The outer error is reserved for host-level
	// aborts (bad budget, missing funds, backend failure); failures of
	// the invocation itself are carried inside the result.
	Execute(caller common.Address, to common.Address, input []byte, value *uint256.Int, gasLimit uint64) (*ExecutionResult, error)
}

// NewExecutor constructs the default backend, the in-process emulator, and
// ensures it satisfies the Executor contract.
func NewExecutor(cfg *params.Config, sdb *state.StateDB) (Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("executor config: %w", err)
	}
	return NewEmulator(cfg, sdb), nil
}

// ExecutionResult is the outcome of one invocation.
type ExecutionResult struct {
	UsedGas    uint64 // gas consumed by the invocation
	Err        error  // nil on success; the invocation's failure otherwise
	ReturnData []byte // result payload, or failure payload when Err is set
}

// Failed returns the indicator whether the execution is successful or not.
func (r *ExecutionResult) Failed() bool { return r.Err != nil }

// Return returns the output when the execution succeeded.
func (r *ExecutionResult) Return() []byte {
	if r.Err != nil {
		return nil
	}
	return common.CopyBytes(r.ReturnData)
}

// FailurePayload returns the output accompanying a failed execution.
func (r *ExecutionResult) FailurePayload() []byte {
	if r.Err == nil {
		return nil
	}
	return common.CopyBytes(r.ReturnData)
}
