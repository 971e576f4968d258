package core

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core/vm"
)

// relayPayload builds a correctly signed payload for the fake host's chain
// and instance.
func relayPayload(t *testing.T, host *fakeHost, key *ecdsa.PrivateKey, commit common.Hash, to common.Address, data []byte) []byte {
	t.Helper()
	sig := wireSig(t, key, AuthDigest(host.ChainID(), host.Address(), commit))
	return EncodeRelay(&Request{Signature: sig, Data: data, Commit: commit, To: to})
}

func TestInvokerRelaySuccess(t *testing.T) {
	host := newFakeHost()
	host.callOut = []byte{0x11, 0x22}
	key, _ := crypto.GenerateKey()
	commit := common.HexToHash("0x0a")
	to := common.HexToAddress("0xf00d")
	data := []byte{0xca, 0xfe}

	payload := relayPayload(t, host, key, commit, to, data)
	out, err := NewInvoker().Run(host, common.HexToAddress("0x01"), payload, uint256.NewInt(5))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(out, host.callOut) {
		t.Fatalf("output %x, want the callee's bytes %x", out, host.callOut)
	}

	if host.callCalls != 1 || host.callTo != to || !bytes.Equal(host.callData, data) {
		t.Fatalf("forwarded call mismatch: calls=%d to=%v data=%x", host.callCalls, host.callTo, host.callData)
	}
	if host.callValue == nil || host.callValue.Uint64() != 5 {
		t.Fatalf("attached value not forwarded: %v", host.callValue)
	}
	if !NewReplayGuard(host).IsUsed(commit) {
		t.Fatalf("commit not consumed by a successful relay")
	}
	// Even on success the commit must have been consumed before the host
	// authorization ran.
	if !host.markedAtAuth {
		t.Fatalf("authorization ran before the commit was consumed")
	}
}

func TestInvokerUnknownOperation(t *testing.T) {
	host := newFakeHost()

	for _, input := range [][]byte{
		nil,
		{0x01},
		append([]byte{0xde, 0xad, 0xbe, 0xef}, make([]byte, 0x80)...),
	} {
		out, err := NewInvoker().Run(host, common.Address{}, input, nil)
		if !errors.Is(err, ErrUnknownOperation) {
			t.Fatalf("input %x: err = %v, want ErrUnknownOperation", input, err)
		}
		if !bytes.Equal(out, ErrUnknownOperation.Selector()) {
			t.Fatalf("input %x: payload %x, want the error identifier", input, out)
		}
	}
	if len(host.storage) != 0 || host.authCalls != 0 || host.callCalls != 0 {
		t.Fatalf("dispatch rejection touched the host")
	}
}

func TestInvokerBadSignatureLengthLeavesStateUntouched(t *testing.T) {
	host := newFakeHost()
	req := validRequest()
	req.Signature = make([]byte, 64)

	out, err := NewInvoker().Run(host, common.Address{}, EncodeRelay(req), nil)
	if !errors.Is(err, ErrBadSignatureLength) {
		t.Fatalf("err = %v, want ErrBadSignatureLength", err)
	}
	if !bytes.Equal(out, ErrBadSignatureLength.Selector()) {
		t.Fatalf("payload %x, want the error identifier", out)
	}
	if len(host.storage) != 0 {
		t.Fatalf("length rejection burned the commit")
	}
	if host.authCalls != 0 || host.callCalls != 0 {
		t.Fatalf("length rejection reached authorization or forwarding")
	}
}

func TestInvokerMalformedRequest(t *testing.T) {
	host := newFakeHost()

	out, err := NewInvoker().Run(host, common.Address{}, RelaySelector(), nil)
	if !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("err = %v, want ErrMalformedRequest", err)
	}
	if !bytes.Equal(out, ErrMalformedRequest.Selector()) {
		t.Fatalf("payload %x, want the error identifier", out)
	}
	if len(host.storage) != 0 {
		t.Fatalf("malformed rejection burned the commit")
	}
}

func TestInvokerBurnsCommitOnHostDenial(t *testing.T) {
	host := newFakeHost()
	host.authErr = vm.ErrAuthDenied
	key, _ := crypto.GenerateKey()
	commit := common.HexToHash("0x0b")

	payload := relayPayload(t, host, key, commit, common.HexToAddress("0x02"), nil)
	out, err := NewInvoker().Run(host, common.Address{}, payload, nil)
	if !errors.Is(err, ErrBadAuth) {
		t.Fatalf("err = %v, want ErrBadAuth", err)
	}
	if !bytes.Equal(out, ErrBadAuth.Selector()) {
		t.Fatalf("payload %x, want the error identifier", out)
	}

	if !host.markedAtAuth {
		t.Fatalf("commit was not consumed before authorization")
	}
	if !NewReplayGuard(host).IsUsed(commit) {
		t.Fatalf("failed authorization left the commit unburned")
	}
	if host.callCalls != 0 {
		t.Fatalf("denied request was still forwarded")
	}
}

func TestInvokerBurnsCommitOnUnusableSignature(t *testing.T) {
	host := newFakeHost()
	host.authErr = vm.ErrAuthDenied
	commit := common.HexToHash("0x0c")
	req := &Request{
		Signature: make([]byte, 65), // unusable, but the right length
		Commit:    commit,
		To:        common.HexToAddress("0x03"),
	}

	_, err := NewInvoker().Run(host, common.Address{}, EncodeRelay(req), nil)
	if !errors.Is(err, ErrBadAuth) {
		t.Fatalf("err = %v, want ErrBadAuth", err)
	}
	if host.authCalls != 1 || host.authAuthority != (common.Address{}) {
		t.Fatalf("host saw %d authorization(s) for %v, want one for the zero candidate", host.authCalls, host.authAuthority)
	}
	if !NewReplayGuard(host).IsUsed(commit) {
		t.Fatalf("commit must be burned even when recovery fails locally")
	}
	if host.callCalls != 0 {
		t.Fatalf("denied request was still forwarded")
	}
}

func TestInvokerReplayRejected(t *testing.T) {
	host := newFakeHost()
	key, _ := crypto.GenerateKey()
	commit := common.HexToHash("0x0d")
	payload := relayPayload(t, host, key, commit, common.HexToAddress("0x04"), nil)

	inv := NewInvoker()
	if _, err := inv.Run(host, common.Address{}, payload, nil); err != nil {
		t.Fatalf("first relay: %v", err)
	}

	out, err := inv.Run(host, common.Address{}, payload, nil)
	if !errors.Is(err, ErrCommitUsed) {
		t.Fatalf("second relay err = %v, want ErrCommitUsed", err)
	}
	if !bytes.Equal(out, ErrCommitUsed.Selector()) {
		t.Fatalf("payload %x, want the error identifier", out)
	}
	if host.authCalls != 1 || host.callCalls != 1 {
		t.Fatalf("replayed request reached authorization or forwarding again")
	}
}

func TestInvokerCorrectedRetryStillRejected(t *testing.T) {
	host := newFakeHost()
	host.authErr = vm.ErrAuthDenied
	key, _ := crypto.GenerateKey()
	commit := common.HexToHash("0x0e")
	payload := relayPayload(t, host, key, commit, common.HexToAddress("0x05"), nil)

	inv := NewInvoker()
	if _, err := inv.Run(host, common.Address{}, payload, nil); !errors.Is(err, ErrBadAuth) {
		t.Fatalf("first relay err = %v, want ErrBadAuth", err)
	}

	// The signer fixes whatever was wrong and retries the same commit.
	host.authErr = nil
	if _, err := inv.Run(host, common.Address{}, payload, nil); !errors.Is(err, ErrCommitUsed) {
		t.Fatalf("corrected retry err = %v, want ErrCommitUsed", err)
	}
	if host.callCalls != 0 {
		t.Fatalf("burned commit was still forwarded")
	}
}

func TestInvokerCalleeFailureVerbatim(t *testing.T) {
	host := newFakeHost()
	host.callErr = vm.ErrExecutionReverted
	host.callOut = []byte{0x08, 0xc3, 0x79, 0xa0, 0x01} // arbitrary callee bytes
	key, _ := crypto.GenerateKey()
	commit := common.HexToHash("0x0f")
	payload := relayPayload(t, host, key, commit, common.HexToAddress("0x06"), nil)

	out, err := NewInvoker().Run(host, common.Address{}, payload, nil)
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("err = %v, want the callee failure", err)
	}
	if !bytes.Equal(out, host.callOut) {
		t.Fatalf("payload %x, want the callee's bytes untouched", out)
	}
	if !NewReplayGuard(host).IsUsed(commit) {
		t.Fatalf("callee failure must not unburn the commit")
	}
}
