package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/params"
)

// AuthMessage assembles the canonical byte string an authorization signs:
// the domain byte, the chain id as a 32-byte big-endian word, the relay
// instance address left-padded to 32 bytes, and the commit. Every field is
// fixed width, so the 97-byte string is injective over its inputs.
func AuthMessage(chainID *big.Int, instance common.Address, commit common.Hash) []byte {
	msg := make([]byte, 0, params.AuthMessageLength)
	msg = append(msg, params.AuthMagic)
	chain := uint256.MustFromBig(chainID).Bytes32()
	msg = append(msg, chain[:]...)
	msg = append(msg, common.LeftPadBytes(instance.Bytes(), 32)...)
	msg = append(msg, commit.Bytes()...)
	return msg
}

// AuthDigest is the keccak hash of the canonical message. Signatures are
// produced and checked over this digest, never over the raw commit.
func AuthDigest(chainID *big.Int, instance common.Address, commit common.Hash) common.Hash {
	return crypto.Keccak256Hash(AuthMessage(chainID, instance, commit))
}
