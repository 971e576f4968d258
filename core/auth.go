package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"

	"github.com/clydemeng/authrelay/core/vm"
	"github.com/clydemeng/authrelay/params"
)

// sigCacheSize bounds the recovered-signer cache. Recovery dominates the
// cost of an invocation, and retries of a failed relay resubmit identical
// signatures.
const sigCacheSize = 4096

// Verifier performs the advisory local recovery and the binding host-side
// authorization for relay requests.
type Verifier struct {
	sigcache *lru.ARCCache // keccak(digest, signature) -> recovered signer
}

func NewVerifier() *Verifier {
	cache, _ := lru.NewARC(sigCacheSize)
	return &Verifier{sigcache: cache}
}

// Recover returns the address whose key produced sig over digest, or the
// zero address if the signature is unusable. The wire layout puts the
// recovery indicator first; it must map into {27, 28} after the legacy
// offset is applied. The result is advisory only: the host re-derives the
// signer itself before granting an identity.
func (v *Verifier) Recover(digest common.Hash, sig []byte) common.Address {
	if len(sig) != params.SignatureLength {
		return common.Address{}
	}
	key := crypto.Keccak256Hash(digest.Bytes(), sig)
	if cached, ok := v.sigcache.Get(key); ok {
		return cached.(common.Address)
	}

	recovery := sig[0] + 27
	if recovery != 27 && recovery != 28 {
		return common.Address{}
	}
	r := new(big.Int).SetBytes(sig[1:33])
	s := new(big.Int).SetBytes(sig[33:65])
	if !crypto.ValidateSignatureValues(recovery-27, r, s, true) {
		return common.Address{}
	}

	ecsig := make([]byte, params.SignatureLength)
	copy(ecsig, sig[1:])
	ecsig[64] = recovery - 27
	pub, err := crypto.Ecrecover(digest.Bytes(), ecsig)
	if err != nil || len(pub) == 0 || pub[0] != 4 {
		return common.Address{}
	}

	var signer common.Address
	copy(signer[:], crypto.Keccak256(pub[1:])[12:])
	v.sigcache.Add(key, signer)
	return signer
}

// Authorize resolves the digest for commit under the host's chain and
// instance, recovers a candidate signer locally, and asks the host to grant
// the delegated identity for that candidate. Local recovery is advisory: an
// unusable signature yields the zero candidate, which is submitted anyway
// and bounces off the host's own signer comparison. Every failure collapses
// into ErrBadAuth, so a caller cannot tell a forged signature from a
// mismatched signer.
func (v *Verifier) Authorize(host vm.Host, commit common.Hash, sig []byte) (*vm.Identity, error) {
	digest := AuthDigest(host.ChainID(), host.Address(), commit)
	candidate := v.Recover(digest, sig)
	id, err := host.Authorize(sig, commit, candidate)
	if err != nil {
		return nil, ErrBadAuth
	}
	return id, nil
}
