package tracing

// FailureReason is a description of why a relay invocation did not complete
// successfully.
type FailureReason int

const (
	FailureNone FailureReason = iota
	FailureUnknownOperation
	FailureMalformedRequest
	FailureBadSignatureLength
	FailureCommitUsed
	FailureBadAuth
	FailureCalleeReverted
	FailureOutOfGas
	FailureInsufficientFunds
	FailureHostAbort
)

// Phase is a description of where in the relay pipeline execution currently
// is. It only feeds debug output.
type Phase int

const (
	PhaseDispatch Phase = iota
	PhaseReplayCheck
	PhaseDigest
	PhaseAuthorize
	PhaseForward
)

// String returns a human-readable string for the reason.
func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "none"
	case FailureUnknownOperation:
		return "unknown_operation"
	case FailureMalformedRequest:
		return "malformed_request"
	case FailureBadSignatureLength:
		return "bad_signature_length"
	case FailureCommitUsed:
		return "commit_used"
	case FailureBadAuth:
		return "bad_auth"
	case FailureCalleeReverted:
		return "callee_reverted"
	case FailureOutOfGas:
		return "out_of_gas"
	case FailureInsufficientFunds:
		return "insufficient_funds"
	case FailureHostAbort:
		return "host_abort"
	}
	return "unknown"
}

// String returns a human-readable string for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDispatch:
		return "dispatch"
	case PhaseReplayCheck:
		return "replay_check"
	case PhaseDigest:
		return "digest"
	case PhaseAuthorize:
		return "authorize"
	case PhaseForward:
		return "forward"
	}
	return "unknown"
}
