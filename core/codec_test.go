package core

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func validRequest() *Request {
	sig := make([]byte, 65)
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return &Request{
		Signature: sig,
		Data:      []byte{0xca, 0x11, 0xab, 0x1e},
		Commit:    common.HexToHash("0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0"),
		To:        common.HexToAddress("0x00000000000000000000000000000000deadbeef"),
	}
}

func TestRelaySelectorDerivation(t *testing.T) {
	sel := RelaySelector()
	if len(sel) != 4 {
		t.Fatalf("selector is %d bytes", len(sel))
	}
	// The operation identifier must be stable across processes; pin it.
	if got := common.Bytes2Hex(sel); got != common.Bytes2Hex(relaySelector) {
		t.Fatalf("selector copy mismatch: %s", got)
	}
	sel[0] ^= 0xff
	if bytes.Equal(sel, relaySelector) {
		t.Fatalf("RelaySelector must return a copy")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, data := range [][]byte{nil, {}, {0x01}, bytes.Repeat([]byte{0xab}, 100)} {
		req := validRequest()
		req.Data = data

		got, err := DecodeRequest(EncodeRelay(req))
		if err != nil {
			t.Fatalf("decode (data len %d): %v", len(data), err)
		}
		if !bytes.Equal(got.Signature, req.Signature) {
			t.Fatalf("signature mismatch: %x != %x", got.Signature, req.Signature)
		}
		if !bytes.Equal(got.Data, data) {
			t.Fatalf("data mismatch: %x != %x", got.Data, data)
		}
		if got.Commit != req.Commit || got.To != req.To {
			t.Fatalf("fixed fields mangled: %+v", got)
		}
	}
}

func TestEncodeCompactLayout(t *testing.T) {
	req := validRequest()
	payload := EncodeRelay(req)

	// selector + 4 head words + (32+65) signature tail + (32+4) data tail
	want := 4 + 0x80 + 32 + 65 + 32 + len(req.Data)
	if len(payload) != want {
		t.Fatalf("payload is %d bytes, want %d", len(payload), want)
	}
	if payload[4+0x9f] != 65 {
		t.Fatalf("signature length word does not end in 65")
	}
	if !bytes.Equal(payload[4+0xa0:4+0xa0+65], req.Signature) {
		t.Fatalf("signature tail is not the raw 65 bytes")
	}
}

func TestDecodeUnknownSelector(t *testing.T) {
	payload := EncodeRelay(validRequest())
	payload[0] ^= 0x01

	if _, err := DecodeRequest(payload); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("err = %v, want ErrUnknownOperation", err)
	}
	if _, err := DecodeRequest([]byte{0x01, 0x02}); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("short input err = %v, want ErrUnknownOperation", err)
	}
}

func TestDecodeSignatureLengthFaults(t *testing.T) {
	for _, n := range []int{0, 1, 64, 66, 128} {
		req := validRequest()
		req.Signature = make([]byte, n)

		if _, err := DecodeRequest(EncodeRelay(req)); !errors.Is(err, ErrBadSignatureLength) {
			t.Fatalf("sig len %d: err = %v, want ErrBadSignatureLength", n, err)
		}
	}

	// A length word that does not fit a uint64 is still a length fault.
	payload := EncodeRelay(validRequest())
	payload[4+0x80] = 0xff
	if _, err := DecodeRequest(payload); !errors.Is(err, ErrBadSignatureLength) {
		t.Fatalf("oversized length word: err = %v, want ErrBadSignatureLength", err)
	}
}

func TestDecodeMalformedPayloads(t *testing.T) {
	base := EncodeRelay(validRequest())

	truncatedSig := append([]byte(nil), base[:4+0x80+32+10]...)

	badSigOffset := append([]byte(nil), base...)
	badSigOffset[4+31] = 0xff // signature offset points far outside

	wideOffset := append([]byte(nil), base...)
	wideOffset[4+0] = 0x01 // high byte set in the signature offset word

	badDataOffset := append([]byte(nil), base...)
	badDataOffset[4+0x20+31] = 0xff

	overlongData := append([]byte(nil), base...)
	// Claim more data bytes than the payload holds. The data length word
	// sits right after the 65 raw signature bytes.
	overlongData[4+0x80+32+65+31] = 0xff

	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty args", RelaySelector()},
		{"short fixed section", base[:4+0x60]},
		{"truncated signature tail", truncatedSig},
		{"signature offset out of range", badSigOffset},
		{"offset word overflow", wideOffset},
		{"data offset out of range", badDataOffset},
		{"data length out of range", overlongData},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := DecodeRequest(c.payload); !errors.Is(err, ErrMalformedRequest) {
				t.Fatalf("err = %v, want ErrMalformedRequest", err)
			}
		})
	}
}

// TestDecodeAcceptsAlignedTails feeds the conventional 32-byte-aligned
// encoding; offsets are honored, so padding between tails is skipped.
func TestDecodeAcceptsAlignedTails(t *testing.T) {
	req := validRequest()

	payload := RelaySelector()
	payload = appendUint64Word(payload, 0x80)
	payload = appendUint64Word(payload, 0x80+32+96) // signature tail padded to a word boundary
	payload = append(payload, req.Commit.Bytes()...)
	payload = append(payload, common.LeftPadBytes(req.To.Bytes(), 32)...)
	payload = appendUint64Word(payload, 65)
	payload = append(payload, req.Signature...)
	payload = append(payload, make([]byte, 31)...) // pad 65 -> 96
	payload = appendUint64Word(payload, uint64(len(req.Data)))
	payload = append(payload, req.Data...)

	got, err := DecodeRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got.Signature, req.Signature) || !bytes.Equal(got.Data, req.Data) {
		t.Fatalf("aligned decode mismatch: %+v", got)
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	payload := EncodeRelay(validRequest())
	req, err := DecodeRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	sig0, data0 := req.Signature[0], req.Data[0]
	for i := range payload {
		payload[i] = 0
	}
	if req.Signature[0] != sig0 || req.Data[0] != data0 {
		t.Fatalf("decoded request aliases the input payload")
	}
}

func TestDecodeTargetFromLowBytes(t *testing.T) {
	payload := EncodeRelay(validRequest())
	// Dirty the high-order 12 bytes of the target word; the address is
	// taken from the low 20 regardless.
	for i := 0; i < 12; i++ {
		payload[4+0x60+i] = 0xee
	}

	req, err := DecodeRequest(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.To != validRequest().To {
		t.Fatalf("target %v, want %v", req.To, validRequest().To)
	}
}
