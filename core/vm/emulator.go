package vm

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core/state"
	"github.com/clydemeng/authrelay/params"
)

var (
	invocationCounter  = metrics.NewRegisteredCounter("host/invocations", nil)
	authGrantedCounter = metrics.NewRegisteredCounter("host/auth/granted", nil)
	authDeniedCounter  = metrics.NewRegisteredCounter("host/auth/denied", nil)
	gasUsedMeter       = metrics.NewRegisteredMeter("host/gas/used", nil)
)

// Emulator is the in-process reference host. It provides what the deployed
// environment would: serialized invocations, journaled all-or-nothing state,
// gas accounting and the two privileged primitives. Contracts are plain Go
// values registered at an address.
//
// Emulator implements Executor.
type Emulator struct {
	cfg       *params.Config
	sdb       *state.StateDB
	contracts map[common.Address]Contract

	// epoch counts invocations; identities minted during one epoch are
	// dead in every later one.
	epoch uint64

	// gasErr latches the first budget exhaustion of the running
	// invocation. Once set, host operations become inert no-ops and the
	// whole invocation is discarded at the end.
	gasErr error

	// mu serializes invocations; the state layer is not reentrant.
	mu sync.Mutex
}

// NewEmulator creates a host over the given state. The configuration fixes
// the chain identity every authorization is checked against.
func NewEmulator(cfg *params.Config, sdb *state.StateDB) *Emulator {
	return &Emulator{
		cfg:       cfg,
		sdb:       sdb,
		contracts: make(map[common.Address]Contract),
	}
}

var _ Executor = (*Emulator)(nil)

// Engine returns a short human identifier for this backend.
func (e *Emulator) Engine() string { return "emulator" }

// Register installs a contract at the given address. Calls and invocations
// targeting any other address behave as plain transfers.
func (e *Emulator) Register(addr common.Address, c Contract) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contracts[addr] = c
}

// Execute runs one invocation against the contract installed at to.
//
// State semantics: the frame of the invoked contract is not rolled back when
// the contract reports failure, only when the host itself aborts (budget
// exhausted, backend broken). What failure leaves behind is therefore up to
// the contract; a callee frame entered through CallAs is always discarded on
// callee failure. The attached value is returned to the submitter whenever
// the invocation does not succeed.
func (e *Emulator) Execute(caller common.Address, to common.Address, input []byte, value *uint256.Int, gasLimit uint64) (*ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.epoch++
	e.gasErr = nil
	invocationCounter.Inc(1)

	if value == nil {
		value = new(uint256.Int)
	}
	gp := new(GasPool).AddGas(gasLimit)
	if intrinsic := IntrinsicGas(input); gp.SubGas(intrinsic) != nil {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, gasLimit, intrinsic)
	}
	if !value.IsZero() && e.sdb.GetBalance(caller).Lt(value) {
		return nil, fmt.Errorf("%w: address %v", ErrInsufficientFunds, caller)
	}

	e.sdb.Prepare(caller, to)
	snap := e.sdb.Snapshot()

	if !value.IsZero() {
		e.sdb.SubBalance(caller, value)
		e.sdb.AddBalance(to, value)
	}

	frame := &hostFrame{emu: e, self: to, caller: caller, gp: gp, epoch: e.epoch}

	var (
		ret    []byte
		runErr error
	)
	if contract, ok := e.contracts[to]; ok {
		ret, runErr = contract.Run(frame, caller, input, value)
	}

	if e.gasErr != nil {
		// Budget exhausted: discard the invocation wholesale.
		e.sdb.RevertToSnapshot(snap)
		gasUsedMeter.Mark(int64(gasLimit))
		log.Debug("Invocation ran out of gas", "to", to, "gasLimit", gasLimit)
		return &ExecutionResult{UsedGas: gasLimit, Err: ErrOutOfGas}, nil
	}
	if runErr != nil && !value.IsZero() {
		// The forwarded call either never happened or was discarded, so
		// the attached value is sitting at the contract. Hand it back.
		e.sdb.SubBalance(to, value)
		e.sdb.AddBalance(caller, value)
	}
	if err := e.sdb.Commit(); err != nil {
		e.sdb.RevertToSnapshot(snap)
		return nil, fmt.Errorf("state commit: %w", err)
	}

	usedGas := gasLimit - gp.Gas()
	gasUsedMeter.Mark(int64(usedGas))
	log.Debug("Invocation processed", "to", to, "caller", caller, "gasUsed", usedGas, "failed", runErr != nil)

	return &ExecutionResult{UsedGas: usedGas, Err: runErr, ReturnData: ret}, nil
}

// recoverAuthorization rebuilds the canonical authorization message from
// scratch and recovers its signer. It deliberately shares no code with the
// contract-side digest computation: the two constructions have to agree bit
// for bit or every authorization is rejected.
func (e *Emulator) recoverAuthorization(instance common.Address, commit common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != params.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(sig))
	}
	yParity := sig[0]
	if yParity > 1 {
		return common.Address{}, fmt.Errorf("recovery indicator %d out of range", yParity)
	}
	r := new(big.Int).SetBytes(sig[1:33])
	s := new(big.Int).SetBytes(sig[33:65])
	if !crypto.ValidateSignatureValues(yParity, r, s, true) {
		return common.Address{}, errors.New("signature values rejected")
	}

	msg := make([]byte, 0, params.AuthMessageLength)
	msg = append(msg, params.AuthMagic)
	chainID := uint256.MustFromBig(e.cfg.ChainID).Bytes32()
	msg = append(msg, chainID[:]...)
	msg = append(msg, common.LeftPadBytes(instance.Bytes(), 32)...)
	msg = append(msg, commit.Bytes()...)
	digest := crypto.Keccak256(msg)

	ecsig := make([]byte, params.SignatureLength)
	copy(ecsig[:64], sig[1:])
	ecsig[64] = yParity
	pub, err := crypto.Ecrecover(digest, ecsig)
	if err != nil {
		return common.Address{}, err
	}
	var signer common.Address
	copy(signer[:], crypto.Keccak256(pub[1:])[12:])
	return signer, nil
}

// hostFrame is the Host view handed to one executing contract. Frames share
// the invocation's gas pool; a sub-call frame differs only in scope and
// apparent caller.
type hostFrame struct {
	emu    *Emulator
	self   common.Address
	caller common.Address
	gp     *GasPool
	epoch  uint64
}

var _ Host = (*hostFrame)(nil)

func (f *hostFrame) ChainID() *big.Int { return f.emu.cfg.ChainID }

func (f *hostFrame) Address() common.Address { return f.self }

// useGas deducts from the shared pool, latching exhaustion on the emulator.
func (f *hostFrame) useGas(amount uint64) bool {
	if f.emu.gasErr != nil {
		return false
	}
	if err := f.gp.SubGas(amount); err != nil {
		f.emu.gasErr = err
		return false
	}
	return true
}

func (f *hostFrame) GetState(slot common.Hash) common.Hash {
	cost := warmStorageReadCost
	if cold := f.emu.sdb.AddSlotToAccessList(f.self, slot); cold {
		cost = coldSloadCost
	}
	if !f.useGas(cost) {
		return common.Hash{}
	}
	return f.emu.sdb.GetState(f.self, slot)
}

func (f *hostFrame) SetState(slot common.Hash, value common.Hash) {
	cost := sstoreSetCost
	if cold := f.emu.sdb.AddSlotToAccessList(f.self, slot); cold {
		cost += coldSloadCost
	}
	if !f.useGas(cost) {
		return
	}
	f.emu.sdb.SetState(f.self, slot, value)
}

func (f *hostFrame) Authorize(sig []byte, commit common.Hash, authority common.Address) (*Identity, error) {
	if !f.useGas(params.AuthGas) {
		return nil, ErrOutOfGas
	}
	signer, err := f.emu.recoverAuthorization(f.self, commit, sig)
	if err != nil {
		authDeniedCounter.Inc(1)
		log.Trace("Delegated authorization rejected", "commit", commit, "err", err)
		return nil, ErrAuthDenied
	}
	if signer != authority {
		authDeniedCounter.Inc(1)
		log.Trace("Delegated authorization signer mismatch", "commit", commit, "signer", signer, "candidate", authority)
		return nil, ErrAuthDenied
	}
	authGrantedCounter.Inc(1)
	log.Trace("Delegated authorization established", "commit", commit, "authority", signer)
	return &Identity{authority: signer, epoch: f.epoch}, nil
}

func (f *hostFrame) CallAs(id *Identity, target common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	if id == nil {
		return nil, ErrAuthRequired
	}
	if id.epoch != f.emu.epoch {
		return nil, ErrIdentityExpired
	}
	if value == nil {
		value = new(uint256.Int)
	}
	cost := warmAccountAccessCost
	if cold := f.emu.sdb.AddAddressToAccessList(target); cold {
		cost = coldAccountAccessCost
	}
	if !value.IsZero() {
		cost += callValueTransferCost
	}
	if !f.useGas(cost) {
		return nil, ErrOutOfGas
	}
	if !value.IsZero() && f.emu.sdb.GetBalance(f.self).Lt(value) {
		return nil, ErrInsufficientFunds
	}

	snap := f.emu.sdb.Snapshot()
	if !value.IsZero() {
		f.emu.sdb.SubBalance(f.self, value)
		f.emu.sdb.AddBalance(target, value)
	}
	contract, ok := f.emu.contracts[target]
	if !ok {
		// Plain transfer to an address without code.
		return nil, nil
	}
	sub := &hostFrame{emu: f.emu, self: target, caller: id.authority, gp: f.gp, epoch: f.epoch}
	ret, err := contract.Run(sub, id.authority, input, value)
	if err != nil {
		// The callee frame is discarded; its raw output travels on
		// unchanged as the failure payload.
		f.emu.sdb.RevertToSnapshot(snap)
		return ret, ErrExecutionReverted
	}
	return ret, nil
}
