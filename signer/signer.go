// Package signer produces the off-band authorizations a relay consumes.
// Nothing here talks to the relay; signing happens wherever the authorizing
// key lives, and only the resulting 65 bytes travel.
package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core"
	"github.com/clydemeng/authrelay/params"
)

// Authorizer builds wire-format authorizations bound to one chain and one
// relay instance. Signatures it produces are worthless anywhere else.
type Authorizer struct {
	chainID  *big.Int
	instance common.Address
	verifier *core.Verifier
}

func New(chainID *big.Int, instance common.Address) *Authorizer {
	return &Authorizer{
		chainID:  new(big.Int).Set(chainID),
		instance: instance,
		verifier: core.NewVerifier(),
	}
}

// Digest returns the value a key must sign to authorize commit.
func (a *Authorizer) Digest(commit common.Hash) common.Hash {
	return core.AuthDigest(a.chainID, a.instance, commit)
}

// Sign authorizes commit with key. The returned 65 bytes are in wire order,
// recovery indicator first, then r, then s.
func (a *Authorizer) Sign(key *ecdsa.PrivateKey, commit common.Hash) ([]byte, error) {
	raw, err := crypto.Sign(a.Digest(commit).Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, params.SignatureLength)
	sig[0] = raw[64]
	copy(sig[1:], raw[:64])
	return sig, nil
}

// Recover returns the address that authorized commit with sig, or the zero
// address if the signature is unusable.
func (a *Authorizer) Recover(commit common.Hash, sig []byte) common.Address {
	return a.verifier.Recover(a.Digest(commit), sig)
}

// Commitment derives the conventional commit for an intended call: keccak
// over the padded target, the value word, the calldata hash, and a salt for
// distinguishing repeat authorizations of the same call. The relay treats
// commits as opaque; the convention only matters to the parties agreeing on
// what was authorized.
func Commitment(to common.Address, value *uint256.Int, data []byte, salt common.Hash) common.Hash {
	if value == nil {
		value = new(uint256.Int)
	}
	vw := value.Bytes32()
	return crypto.Keccak256Hash(
		common.LeftPadBytes(to.Bytes(), 32),
		vw[:],
		crypto.Keccak256(data),
		salt.Bytes(),
	)
}
