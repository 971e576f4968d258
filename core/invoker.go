package core

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"

	"github.com/clydemeng/authrelay/core/vm"
	"github.com/clydemeng/authrelay/tracing"
)

var (
	relayRequestCounter  = metrics.NewRegisteredCounter("relay/requests", nil)
	relaySuccessCounter  = metrics.NewRegisteredCounter("relay/success", nil)
	relayRejectedCounter = metrics.NewRegisteredCounter("relay/rejected", nil)
	relayReplayCounter   = metrics.NewRegisteredCounter("relay/replays", nil)
)

// Invoker is the relay contract: a single-operation dispatcher that consumes
// a commit, authorizes the request against it, and forwards the inner call
// as the authorizing identity.
type Invoker struct {
	verifier *Verifier
}

func NewInvoker() *Invoker {
	return &Invoker{verifier: NewVerifier()}
}

var _ vm.Contract = (*Invoker)(nil)

// Run handles one invocation payload.
//
// The order is load-bearing: the commit is consumed before authorization
// runs, so a commit attached to a failing authorization is burned for good.
func (inv *Invoker) Run(host vm.Host, _ common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	relayRequestCounter.Inc(1)

	if len(input) < 4 || !bytes.Equal(input[:4], relaySelector) {
		relayRejectedCounter.Inc(1)
		log.Trace("Relay rejected", "phase", tracing.PhaseDispatch, "len", len(input))
		return ErrUnknownOperation.Selector(), ErrUnknownOperation
	}
	req, err := decodeRelayArgs(input[4:])
	if err != nil {
		relayRejectedCounter.Inc(1)
		log.Trace("Relay rejected", "phase", tracing.PhaseDispatch, "err", err)
		return abortPayload(err), err
	}

	guard := NewReplayGuard(host)
	if guard.IsUsed(req.Commit) {
		relayReplayCounter.Inc(1)
		log.Trace("Relay rejected", "phase", tracing.PhaseReplayCheck, "commit", req.Commit)
		return ErrCommitUsed.Selector(), ErrCommitUsed
	}
	guard.MarkUsed(req.Commit)

	id, err := inv.verifier.Authorize(host, req.Commit, req.Signature)
	if err != nil {
		relayRejectedCounter.Inc(1)
		log.Trace("Relay rejected", "phase", tracing.PhaseAuthorize, "commit", req.Commit)
		return ErrBadAuth.Selector(), ErrBadAuth
	}

	out, err := Forward(host, id, req.To, req.Data, value)
	if err != nil {
		log.Trace("Relay forwarded call failed", "phase", tracing.PhaseForward, "to", req.To)
		return out, err
	}
	relaySuccessCounter.Inc(1)
	return out, nil
}

// abortPayload extracts the 4-byte identifier an abort reports.
func abortPayload(err error) []byte {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Selector()
	}
	return nil
}
