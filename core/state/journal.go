package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalEntry is a modification to the state overlay that can be undone.
type journalEntry interface {
	// revert undoes the change introduced by this entry.
	revert(*StateDB)
}

// journal contains the list of state modifications applied since the last
// commit. Entries are undone in reverse order on revert.
type journal struct {
	entries []journalEntry
}

func newJournal() *journal {
	return &journal{}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// revert undoes a batch of journalled modifications along with any journalled
// entries after the snapshot index.
func (j *journal) revert(statedb *StateDB, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(statedb)
	}
	j.entries = j.entries[:snapshot]
}

// length returns the current number of entries in the journal.
func (j *journal) length() int {
	return len(j.entries)
}

// reset drops every entry; used after a successful commit.
func (j *journal) reset() {
	j.entries = j.entries[:0]
}

type (
	storageChange struct {
		account     common.Address
		key         common.Hash
		prevalue    common.Hash
		prevPresent bool // whether the overlay held a value before this write
	}
	balanceChange struct {
		account     common.Address
		prev        *uint256.Int
		prevPresent bool
	}
	accessListAddAccountChange struct {
		address common.Address
	}
	accessListAddSlotChange struct {
		address common.Address
		slot    common.Hash
	}
)

func (ch storageChange) revert(s *StateDB) {
	if !ch.prevPresent {
		if slots, ok := s.pendingStorage[ch.account]; ok {
			delete(slots, ch.key)
			if len(slots) == 0 {
				delete(s.pendingStorage, ch.account)
			}
		}
		return
	}
	s.pendingStorage[ch.account][ch.key] = ch.prevalue
}

func (ch balanceChange) revert(s *StateDB) {
	if !ch.prevPresent {
		delete(s.pendingBalance, ch.account)
		return
	}
	s.pendingBalance[ch.account] = ch.prev
}

func (ch accessListAddAccountChange) revert(s *StateDB) {
	// Journal ordering guarantees that an (address, slot) add preceded by
	// the address add is reverted slot-first, so no slots remain here.
	s.accessList.DeleteAddress(ch.address)
}

func (ch accessListAddSlotChange) revert(s *StateDB) {
	s.accessList.DeleteSlot(ch.address, ch.slot)
}
