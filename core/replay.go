package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/clydemeng/authrelay/core/vm"
)

// replayBase is the logical index of the used-commit table in relay storage.
// Slots are derived the way contract languages place mapping entries, keccak
// of the key concatenated with the table index.
var replayBase = common.Hash{}

// usedMarker is the value written into a commit's slot once it is consumed.
var usedMarker = common.BytesToHash([]byte{1})

// ReplayGuard tracks consumed commits in the relay's host storage.
type ReplayGuard struct {
	store vm.Storage
}

func NewReplayGuard(store vm.Storage) *ReplayGuard {
	return &ReplayGuard{store: store}
}

// slotFor derives the storage slot recording one commit.
func slotFor(commit common.Hash) common.Hash {
	return crypto.Keccak256Hash(commit.Bytes(), replayBase.Bytes())
}

// IsUsed reports whether the commit has been consumed. Any nonzero slot
// value counts.
func (g *ReplayGuard) IsUsed(commit common.Hash) bool {
	return g.store.GetState(slotFor(commit)) != (common.Hash{})
}

// MarkUsed consumes the commit unconditionally.
func (g *ReplayGuard) MarkUsed(commit common.Hash) {
	g.store.SetState(slotFor(commit), usedMarker)
}
