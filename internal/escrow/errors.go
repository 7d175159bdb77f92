package escrow

import (
	"fmt"
	"strings"
)

// Revert reasons emitted by the JobEscrow contract. Anything else coming back
// from the node is surfaced as an unknown revert.
const (
	RevertOnlyClient         = "Only client"
	RevertOnlyFreelancer     = "Only freelancer"
	RevertOnlyArbitrator     = "Only arbitrator"
	RevertInvalidStatus      = "Invalid status"
	RevertTimeoutNotReached  = "Approval timeout not reached"
	RevertOnlyFreelancerDisp = "Only freelancer can initiate dispute"
)

var knownReverts = []string{
	RevertOnlyClient,
	RevertOnlyFreelancer,
	RevertOnlyArbitrator,
	RevertInvalidStatus,
	RevertTimeoutNotReached,
	RevertOnlyFreelancerDisp,
}

// GuardViolation is a local rejection: the requested transition fails a
// state, role or time guard before any transaction is sent.
type GuardViolation struct {
	Action Action
	From   Status
	Reason string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("action %s rejected in status %q: %s", e.Action, e.From, e.Reason)
}

// ChainRevert is a rejection by the ledger itself. Reason is one of the known
// contract revert strings, or the raw reason with Known=false.
type ChainRevert struct {
	Reason string
	Known  bool
}

func (e *ChainRevert) Error() string {
	if e.Known {
		return fmt.Sprintf("chain revert: %s", e.Reason)
	}
	return fmt.Sprintf("chain revert (unknown reason): %s", e.Reason)
}

// NewChainRevert classifies a raw revert reason against the known set.
func NewChainRevert(raw string) *ChainRevert {
	raw = strings.TrimSpace(raw)
	for _, known := range knownReverts {
		if raw == known {
			return &ChainRevert{Reason: known, Known: true}
		}
	}
	return &ChainRevert{Reason: raw}
}

// ConnectivityError covers a missing provider, a missing signer for the actor
// wallet, a wrong network, or a rejected connection prompt.
type ConnectivityError struct {
	Reason string
}

func (e *ConnectivityError) Error() string {
	return "not connected: " + e.Reason
}

// MirrorSyncError marks a failed off-chain mirror update after a confirmed
// chain write. It is logged and surfaced as a warning only: the on-chain
// transition is already final and is never rolled back for it.
type MirrorSyncError struct {
	JobID string
	Err   error
}

func (e *MirrorSyncError) Error() string {
	return fmt.Sprintf("mirror sync failed for job %s: %v", e.JobID, e.Err)
}

func (e *MirrorSyncError) Unwrap() error { return e.Err }
