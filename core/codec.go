package core

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/clydemeng/authrelay/params"
)

// RelayOperation is the declaration the public entry point is derived from.
const RelayOperation = "relay(bytes,bytes,bytes32,address)"

// relaySelector identifies the relay operation on the wire.
var relaySelector = crypto.Keccak256([]byte(RelayOperation))[:4]

// RelaySelector returns a copy of the 4-byte operation identifier.
func RelaySelector() []byte {
	return append([]byte(nil), relaySelector...)
}

// Argument block layout, relative to the end of the selector. The two byte
// strings live in tails addressed by offset words; the tails are packed
// without end padding, so the encoding is shorter than the conventional
// 32-byte-aligned form but decodes under the same offset rules.
const (
	sigOffWord  = 0x00
	dataOffWord = 0x20
	commitWord  = 0x40
	targetWord  = 0x60
	fixedArgLen = 0x80
)

// Request is one decoded relay invocation.
type Request struct {
	// Signature is the 65-byte authorization over the commit, laid out as
	// recovery indicator, then r, then s.
	Signature []byte

	// Data is the calldata forwarded to the target.
	Data []byte

	// Commit binds the authorization to a single use.
	Commit common.Hash

	// To is the call target, taken from the low-order 20 bytes of its word.
	To common.Address
}

// EncodeRelay serializes a request into the relay wire form. It encodes
// whatever it is given; length rules are enforced by the decoder, so tests
// and tooling can deliberately produce rejectable payloads.
func EncodeRelay(req *Request) []byte {
	sigOff := uint64(fixedArgLen)
	dataOff := sigOff + 32 + uint64(len(req.Signature))

	out := make([]byte, 0, 4+fixedArgLen+64+len(req.Signature)+len(req.Data))
	out = append(out, relaySelector...)
	out = appendUint64Word(out, sigOff)
	out = appendUint64Word(out, dataOff)
	out = append(out, req.Commit.Bytes()...)
	out = append(out, common.LeftPadBytes(req.To.Bytes(), 32)...)
	out = appendUint64Word(out, uint64(len(req.Signature)))
	out = append(out, req.Signature...)
	out = appendUint64Word(out, uint64(len(req.Data)))
	out = append(out, req.Data...)
	return out
}

// DecodeRequest parses a full relay payload, selector included. The returned
// request does not alias the input.
func DecodeRequest(input []byte) (*Request, error) {
	if len(input) < 4 || !bytes.Equal(input[:4], relaySelector) {
		return nil, ErrUnknownOperation
	}
	return decodeRelayArgs(input[4:])
}

func decodeRelayArgs(args []byte) (*Request, error) {
	if len(args) < fixedArgLen {
		return nil, ErrMalformedRequest
	}
	sigOff, ok := wordToOffset(args[sigOffWord : sigOffWord+32])
	if !ok {
		return nil, ErrMalformedRequest
	}
	dataOff, ok := wordToOffset(args[dataOffWord : dataOffWord+32])
	if !ok {
		return nil, ErrMalformedRequest
	}

	if sigOff+32 < sigOff || sigOff+32 > uint64(len(args)) {
		return nil, ErrMalformedRequest
	}
	// Any claimed length other than the canonical one is a length fault,
	// including lengths too large to represent.
	sigLen, ok := wordToOffset(args[sigOff : sigOff+32])
	if !ok || sigLen != params.SignatureLength {
		return nil, ErrBadSignatureLength
	}
	sigEnd := sigOff + 32 + params.SignatureLength
	if sigEnd > uint64(len(args)) {
		return nil, ErrMalformedRequest
	}

	if dataOff+32 < dataOff || dataOff+32 > uint64(len(args)) {
		return nil, ErrMalformedRequest
	}
	dataLen, ok := wordToOffset(args[dataOff : dataOff+32])
	if !ok {
		return nil, ErrMalformedRequest
	}
	dataEnd := dataOff + 32 + dataLen
	if dataEnd < dataOff || dataEnd > uint64(len(args)) {
		return nil, ErrMalformedRequest
	}

	return &Request{
		Signature: append([]byte(nil), args[sigOff+32:sigEnd]...),
		Data:      append([]byte(nil), args[dataOff+32:dataEnd]...),
		Commit:    common.BytesToHash(args[commitWord : commitWord+32]),
		To:        common.BytesToAddress(args[targetWord : targetWord+32]),
	}, nil
}

// wordToOffset reads a 32-byte big-endian word that must fit in a uint64.
func wordToOffset(word []byte) (uint64, bool) {
	for _, b := range word[:24] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(word[24:]), true
}

func appendUint64Word(buf []byte, v uint64) []byte {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], v)
	return append(buf, word[:]...)
}
