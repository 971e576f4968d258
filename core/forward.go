package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core/vm"
)

// Forward relays the inner call as the authorized identity, handing over the
// entire remaining budget and the attached value. The callee's output is
// returned verbatim in both directions: a failing callee surfaces as
// vm.ErrExecutionReverted with the callee's own bytes as payload, untouched.
func Forward(host vm.Host, id *vm.Identity, to common.Address, data []byte, value *uint256.Int) ([]byte, error) {
	return host.CallAs(id, to, data, value)
}
