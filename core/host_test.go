package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core/vm"
)

// fakeHost exposes scripted host behavior so pipeline ordering can be
// asserted without a full emulator. Authorize never mints an identity; the
// invoker hands whatever it gets straight to CallAs, and the fake does not
// care.
type fakeHost struct {
	storage map[common.Hash]common.Hash
	chainID *big.Int
	self    common.Address

	authErr       error
	authCalls     int
	authAuthority common.Address
	// markedAtAuth records whether the commit's replay slot was already
	// set when the host authorization ran.
	markedAtAuth bool

	callErr   error
	callOut   []byte
	callCalls int
	callTo    common.Address
	callData  []byte
	callValue *uint256.Int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		storage: make(map[common.Hash]common.Hash),
		chainID: big.NewInt(56),
		self:    common.HexToAddress("0x0000000000000000000000000000000000003074"),
	}
}

func (h *fakeHost) GetState(slot common.Hash) common.Hash  { return h.storage[slot] }
func (h *fakeHost) SetState(slot, value common.Hash)       { h.storage[slot] = value }
func (h *fakeHost) ChainID() *big.Int                      { return h.chainID }
func (h *fakeHost) Address() common.Address                { return h.self }

func (h *fakeHost) Authorize(sig []byte, commit common.Hash, authority common.Address) (*vm.Identity, error) {
	h.authCalls++
	h.authAuthority = authority
	h.markedAtAuth = h.storage[slotFor(commit)] != (common.Hash{})
	if h.authErr != nil {
		return nil, h.authErr
	}
	return nil, nil
}

func (h *fakeHost) CallAs(_ *vm.Identity, target common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	h.callCalls++
	h.callTo = target
	h.callData = append([]byte(nil), input...)
	h.callValue = value
	return h.callOut, h.callErr
}

var _ vm.Host = (*fakeHost)(nil)
