package core

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/clydemeng/authrelay/core/vm"
	"github.com/clydemeng/authrelay/tracing"
)

// RelayError is an abort reported by the relay contract itself, as opposed to
// a failure inside the forwarded call. Each carries the 4-byte identifier of
// its declaration, which becomes the invocation's entire failure payload. The
// identifier carries no arguments, so callers distinguish causes by comparing
// those four bytes alone.
type RelayError struct {
	decl string
	id   [4]byte
}

// NewRelayError derives the error identifier from its declaration string.
func NewRelayError(decl string) *RelayError {
	e := &RelayError{decl: decl}
	copy(e.id[:], crypto.Keccak256([]byte(decl)))
	return e
}

func (e *RelayError) Error() string {
	return "relay aborted: " + e.decl
}

// Selector returns the 4-byte failure payload for this error.
func (e *RelayError) Selector() []byte {
	return e.id[:]
}

// Is reports identifier equality, so wrapped relay errors still match their
// declared sentinel under errors.Is.
func (e *RelayError) Is(target error) bool {
	t, ok := target.(*RelayError)
	return ok && t.id == e.id
}

var (
	// ErrUnknownOperation rejects requests whose selector names no operation.
	ErrUnknownOperation = NewRelayError("UnknownOperation()")

	// ErrMalformedRequest rejects relay requests whose payload cannot be
	// decoded into the expected shape.
	ErrMalformedRequest = NewRelayError("MalformedRequest()")

	// ErrBadSignatureLength rejects signatures that are not exactly 65 bytes.
	// It is raised before any state is touched.
	ErrBadSignatureLength = NewRelayError("BadSignatureLength()")

	// ErrCommitUsed rejects a commit whose replay slot is already set.
	ErrCommitUsed = NewRelayError("CommitUsed()")

	// ErrBadAuth covers every authorization failure, deliberately without
	// distinguishing a forged signature from a mismatched signer.
	ErrBadAuth = NewRelayError("BadAuth()")
)

// IdentifierToError maps a 4-byte failure payload back to the relay error
// that produced it, or nil if the payload is not one of ours.
func IdentifierToError(payload []byte) *RelayError {
	for _, e := range []*RelayError{
		ErrUnknownOperation,
		ErrMalformedRequest,
		ErrBadSignatureLength,
		ErrCommitUsed,
		ErrBadAuth,
	} {
		if bytes.Equal(payload, e.id[:]) {
			return e
		}
	}
	return nil
}

// FailureReasonOf classifies an invocation error for tracing.
func FailureReasonOf(err error) tracing.FailureReason {
	switch {
	case err == nil:
		return tracing.FailureNone
	case errors.Is(err, ErrUnknownOperation):
		return tracing.FailureUnknownOperation
	case errors.Is(err, ErrMalformedRequest):
		return tracing.FailureMalformedRequest
	case errors.Is(err, ErrBadSignatureLength):
		return tracing.FailureBadSignatureLength
	case errors.Is(err, ErrCommitUsed):
		return tracing.FailureCommitUsed
	case errors.Is(err, ErrBadAuth):
		return tracing.FailureBadAuth
	case errors.Is(err, vm.ErrExecutionReverted):
		return tracing.FailureCalleeReverted
	case errors.Is(err, vm.ErrOutOfGas):
		return tracing.FailureOutOfGas
	case errors.Is(err, vm.ErrInsufficientFunds):
		return tracing.FailureInsufficientFunds
	default:
		return tracing.FailureHostAbort
	}
}
