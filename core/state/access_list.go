package state

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// accessList tracks the addresses and storage slots touched during the
// current invocation, so that repeat accesses are charged the warm cost.
// It is rebuilt by Prepare at the start of every invocation.
type accessList struct {
	addresses mapset.Set[common.Address]
	slots     map[common.Address]mapset.Set[common.Hash]
}

func newAccessList() *accessList {
	return &accessList{
		addresses: mapset.NewThreadUnsafeSet[common.Address](),
		slots:     make(map[common.Address]mapset.Set[common.Hash]),
	}
}

// ContainsAddress returns true if the address is in the access list.
func (al *accessList) ContainsAddress(address common.Address) bool {
	return al.addresses.Contains(address)
}

// Contains checks if a slot within an account is present in the access list,
// returning separate flags for the presence of the account and the slot.
func (al *accessList) Contains(address common.Address, slot common.Hash) (addressPresent bool, slotPresent bool) {
	set, ok := al.slots[address]
	if !ok {
		return al.addresses.Contains(address), false
	}
	return true, set.Contains(slot)
}

// AddAddress adds an address to the access list and returns true if it was
// not already present.
func (al *accessList) AddAddress(address common.Address) bool {
	return al.addresses.Add(address)
}

// AddSlot adds the specified (address, slot) combo to the access list.
// Return values are flags whether the address and the slot were newly added.
func (al *accessList) AddSlot(address common.Address, slot common.Hash) (addrChange bool, slotChange bool) {
	addrChange = al.addresses.Add(address)
	set, ok := al.slots[address]
	if !ok {
		set = mapset.NewThreadUnsafeSet[common.Hash]()
		al.slots[address] = set
	}
	slotChange = set.Add(slot)
	return addrChange, slotChange
}

// DeleteAddress removes an address from the access list. Only used by the
// journal when reverting; the address must have no tracked slots left.
func (al *accessList) DeleteAddress(address common.Address) {
	al.addresses.Remove(address)
	delete(al.slots, address)
}

// DeleteSlot removes an (address, slot) pair from the access list. Only used
// by the journal when reverting.
func (al *accessList) DeleteSlot(address common.Address, slot common.Hash) {
	if set, ok := al.slots[address]; ok {
		set.Remove(slot)
		if set.Cardinality() == 0 {
			delete(al.slots, address)
		}
	}
}
