package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/kvdb"
)

// Key prefixes used in the backing store.
const (
	storagePrefix = byte('s') // storagePrefix + address + slot -> value
	balancePrefix = byte('b') // balancePrefix + address -> balance
)

type revision struct {
	id           int
	journalIndex int
}

// StateDB holds the relay's persistent state: contract storage slots and the
// account balance ledger. Writes accumulate in an in-memory overlay guarded
// by a journal and only reach the backing store on Commit, so a revert is a
// pure in-memory operation.
//
// StateDB is not safe for concurrent use beyond what the internal mutex
// provides for individual operations; invocations are expected to be
// serialized by the caller.
type StateDB struct {
	backend kvdb.KeyValueStore

	// pendingStorage records the value written to storage slots since the
	// last commit: pendingStorage[addr][slot] = value
	pendingStorage map[common.Address]map[common.Hash]common.Hash

	// pendingBalance records the balance written to accounts since the
	// last commit.
	pendingBalance map[common.Address]*uint256.Int

	journal        *journal
	accessList     *accessList
	validRevisions []revision
	nextRevisionId int

	// dbErr records the first backend failure; surfaced by Error and Commit.
	dbErr error

	mu sync.Mutex
}

// New creates a state database over the given backend.
func New(backend kvdb.KeyValueStore) *StateDB {
	return &StateDB{
		backend:        backend,
		pendingStorage: make(map[common.Address]map[common.Hash]common.Hash),
		pendingBalance: make(map[common.Address]*uint256.Int),
		journal:        newJournal(),
		accessList:     newAccessList(),
	}
}

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the first backend failure observed, if any.
func (s *StateDB) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbErr
}

// Prepare resets the per-invocation access list and pre-warms the given
// addresses, typically the submitter and the contract being invoked.
func (s *StateDB) Prepare(warm ...common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessList = newAccessList()
	for _, addr := range warm {
		s.accessList.AddAddress(addr)
	}
}

// GetState retrieves the value of a storage slot, consulting the overlay
// before the backing store.
func (s *StateDB) GetState(addr common.Address, slot common.Hash) common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slots, ok := s.pendingStorage[addr]; ok {
		if val, ok := slots[slot]; ok {
			return val
		}
	}
	return s.committedState(addr, slot)
}

// SetState writes a storage slot into the overlay, journalling the previous
// overlay state for revert.
func (s *StateDB) SetState(addr common.Address, slot common.Hash, value common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.pendingStorage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		s.pendingStorage[addr] = slots
	}
	prev, prevPresent := slots[slot]
	s.journal.append(storageChange{
		account:     addr,
		key:         slot,
		prevalue:    prev,
		prevPresent: prevPresent,
	})
	slots[slot] = value
}

// GetBalance retrieves the balance of an account, consulting the overlay
// before the backing store. The returned value must not be mutated.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance(addr)
}

// AddBalance adds amount to the account's balance.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.balance(addr)
	s.journalBalance(addr)
	s.pendingBalance[addr] = new(uint256.Int).Add(cur, amount)
}

// SubBalance subtracts amount from the account's balance. Callers must have
// checked that the balance covers the amount.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.balance(addr)
	s.journalBalance(addr)
	s.pendingBalance[addr] = new(uint256.Int).Sub(cur, amount)
}

// SetBalance overwrites the account's balance; used to prefund accounts.
func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.journalBalance(addr)
	s.pendingBalance[addr] = new(uint256.Int).Set(amount)
}

func (s *StateDB) journalBalance(addr common.Address) {
	prev, prevPresent := s.pendingBalance[addr]
	s.journal.append(balanceChange{
		account:     addr,
		prev:        prev,
		prevPresent: prevPresent,
	})
}

// balance reads through overlay then backend; callers hold the mutex.
func (s *StateDB) balance(addr common.Address) *uint256.Int {
	if bal, ok := s.pendingBalance[addr]; ok {
		return bal
	}
	enc, err := s.backend.Get(balanceKey(addr))
	if err == kvdb.ErrNotFound {
		return new(uint256.Int)
	}
	if err != nil {
		s.setError(err)
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes(enc)
}

// committedState reads a slot from the backend; callers hold the mutex.
func (s *StateDB) committedState(addr common.Address, slot common.Hash) common.Hash {
	enc, err := s.backend.Get(storageKey(addr, slot))
	if err == kvdb.ErrNotFound {
		return common.Hash{}
	}
	if err != nil {
		s.setError(err)
		return common.Hash{}
	}
	return common.BytesToHash(enc)
}

// AddAddressToAccessList adds the given address to the access list and
// reports whether it was cold before the call.
func (s *StateDB) AddAddressToAccessList(addr common.Address) (cold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessList.AddAddress(addr) {
		s.journal.append(accessListAddAccountChange{address: addr})
		return true
	}
	return false
}

// AddSlotToAccessList adds the given (address, slot) to the access list and
// reports whether the slot was cold before the call.
func (s *StateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) (cold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrChange, slotChange := s.accessList.AddSlot(addr, slot)
	if addrChange {
		s.journal.append(accessListAddAccountChange{address: addr})
	}
	if slotChange {
		s.journal.append(accessListAddSlotChange{address: addr, slot: slot})
	}
	return slotChange
}

// AddressInAccessList reports whether the address is warm.
func (s *StateDB) AddressInAccessList(addr common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessList.ContainsAddress(addr)
}

// SlotInAccessList reports whether the address and slot are warm.
func (s *StateDB) SlotInAccessList(addr common.Address, slot common.Hash) (addressPresent bool, slotPresent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessList.Contains(addr, slot)
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextRevisionId
	s.nextRevisionId++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Find the snapshot in the stack of valid snapshots.
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// Commit applies everything recorded in the overlay to the backing store and
// clears the journal. A zero value deletes the underlying key.
func (s *StateDB) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dbErr != nil {
		return s.dbErr
	}
	for addr, slots := range s.pendingStorage {
		for slot, val := range slots {
			key := storageKey(addr, slot)
			var err error
			if val == (common.Hash{}) {
				err = s.backend.Delete(key)
			} else {
				err = s.backend.Put(key, val.Bytes())
			}
			if err != nil {
				return fmt.Errorf("committing storage %s/%s: %w", addr.Hex(), slot.Hex(), err)
			}
		}
	}
	for addr, bal := range s.pendingBalance {
		key := balanceKey(addr)
		var err error
		if bal.IsZero() {
			err = s.backend.Delete(key)
		} else {
			err = s.backend.Put(key, bal.Bytes())
		}
		if err != nil {
			return fmt.Errorf("committing balance %s: %w", addr.Hex(), err)
		}
	}
	s.pendingStorage = make(map[common.Address]map[common.Hash]common.Hash)
	s.pendingBalance = make(map[common.Address]*uint256.Int)
	s.journal.reset()
	s.validRevisions = s.validRevisions[:0]
	s.nextRevisionId = 0
	return nil
}

// Dirty reports whether the overlay holds uncommitted changes.
func (s *StateDB) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingStorage) > 0 || len(s.pendingBalance) > 0
}

func storageKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, 1+common.AddressLength+common.HashLength)
	key = append(key, storagePrefix)
	key = append(key, addr.Bytes()...)
	key = append(key, slot.Bytes()...)
	return key
}

func balanceKey(addr common.Address) []byte {
	key := make([]byte, 0, 1+common.AddressLength)
	key = append(key, balancePrefix)
	key = append(key, addr.Bytes()...)
	return key
}
