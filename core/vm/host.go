package vm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrExecutionReverted is returned by CallAs when the callee failed.
	// The output accompanying it is the callee's raw failure payload.
	ErrExecutionReverted = errors.New("execution reverted")

	// ErrAuthDenied is returned by Authorize when no authorized identity
	// could be established, for any underlying cryptographic reason.
	ErrAuthDenied = errors.New("authorization denied")

	// ErrAuthRequired is returned by CallAs when no identity is supplied.
	ErrAuthRequired = errors.New("no authorized identity")

	// ErrIdentityExpired is returned by CallAs when the supplied identity
	// was established by an earlier invocation.
	ErrIdentityExpired = errors.New("authorized identity expired")

	// ErrOutOfGas is reported when an invocation exhausts its computation
	// budget. All of its effects are discarded.
	ErrOutOfGas = errors.New("out of gas")

	// ErrIntrinsicGas is reported when the budget cannot even cover the
	// flat invocation cost.
	ErrIntrinsicGas = errors.New("intrinsic gas too low")

	// ErrInsufficientFunds is reported when the submitter cannot cover the
	// attached value.
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
)

// Storage is the slot-addressed persistent storage view an executing
// contract sees: its own slice of the global state, nothing else.
type Storage interface {
	GetState(slot common.Hash) common.Hash
	SetState(slot common.Hash, value common.Hash)
}

// Host is the execution environment handed to a running contract. Besides
// scoped storage it exposes the two privileged primitives, delegated
// authorization and delegated calling, that only the host can provide.
type Host interface {
	Storage

	// ChainID returns the identifier of the chain the host executes on.
	ChainID() *big.Int

	// Address returns the address the current contract executes at.
	Address() common.Address

	// Authorize verifies the raw signature over the host's own
	// reconstruction of the canonical authorization message for commit,
	// checks the recovered signer against authority, and on success
	// establishes an identity valid for the remainder of this invocation.
	Authorize(sig []byte, commit common.Hash, authority common.Address) (*Identity, error)

	// CallAs performs a call to target that appears to originate from the
	// authorized identity rather than from the calling contract. The full
	// remaining computation budget and the given value are forwarded. On
	// callee failure the callee's effects are discarded and its raw output
	// is returned alongside ErrExecutionReverted.
	CallAs(id *Identity, target common.Address, input []byte, value *uint256.Int) ([]byte, error)
}

// Contract is code installed at an address inside the host.
type Contract interface {
	// Run executes the contract with the given input. A non-nil error marks
	// the invocation as failed; the returned bytes are the output in both
	// cases (result payload on success, failure payload otherwise).
	Run(host Host, caller common.Address, input []byte, value *uint256.Int) ([]byte, error)
}

// Identity is the opaque token minted by a successful Authorize. It is bound
// to the invocation that created it and is rejected everywhere else.
type Identity struct {
	authority common.Address
	epoch     uint64
}

// Authority returns the address this identity acts as.
func (id *Identity) Authority() common.Address {
	return id.authority
}
