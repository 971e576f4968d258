package core

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/authrelay/params"
)

func TestAuthMessageLayout(t *testing.T) {
	chainID := big.NewInt(56)
	instance := common.HexToAddress("0x0000000000000000000000000000000000003074")
	commit := common.HexToHash("0xaabb")

	msg := AuthMessage(chainID, instance, commit)
	if len(msg) != params.AuthMessageLength {
		t.Fatalf("message is %d bytes, want %d", len(msg), params.AuthMessageLength)
	}
	if msg[0] != params.AuthMagic {
		t.Fatalf("domain byte %#x, want %#x", msg[0], params.AuthMagic)
	}
	if !bytes.Equal(msg[1:33], common.LeftPadBytes(chainID.Bytes(), 32)) {
		t.Fatalf("chain id field wrong: %x", msg[1:33])
	}
	if !bytes.Equal(msg[33:65], common.LeftPadBytes(instance.Bytes(), 32)) {
		t.Fatalf("instance field wrong: %x", msg[33:65])
	}
	if !bytes.Equal(msg[65:97], commit.Bytes()) {
		t.Fatalf("commit field wrong: %x", msg[65:97])
	}
}

func TestAuthDigestBindsEveryField(t *testing.T) {
	chainID := big.NewInt(56)
	instance := common.HexToAddress("0x3074")
	commit := common.HexToHash("0x01")

	base := AuthDigest(chainID, instance, commit)

	if got := AuthDigest(big.NewInt(57), instance, commit); got == base {
		t.Fatalf("digest ignores the chain id")
	}
	if got := AuthDigest(chainID, common.HexToAddress("0x3075"), commit); got == base {
		t.Fatalf("digest ignores the instance address")
	}
	if got := AuthDigest(chainID, instance, common.HexToHash("0x02")); got == base {
		t.Fatalf("digest ignores the commit")
	}
	if got := AuthDigest(chainID, instance, commit); got != base {
		t.Fatalf("digest is not deterministic")
	}
}
