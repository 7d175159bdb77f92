package escrow

// DisputeWindow is derived, never stored. It is an advisory local estimate:
// the contract enforces the same arithmetic with its own clock at transaction
// time, and that on-chain check is the authoritative gate.
type DisputeWindow struct {
	CanDispute    bool  `json:"can_dispute"`
	TimeRemaining int64 `json:"time_remaining_seconds"`
	CanDisputeAt  int64 `json:"can_dispute_at"`
}

// Window evaluates dispute eligibility for a job at the given wall-clock now.
// workSubmittedAt == 0 means work was never submitted: the window never opens
// and the remaining time is zero, never negative.
func Window(workSubmittedAt, timeoutSeconds, now int64) DisputeWindow {
	if workSubmittedAt <= 0 {
		return DisputeWindow{}
	}

	openAt := workSubmittedAt + timeoutSeconds
	remaining := openAt - now
	if remaining < 0 {
		remaining = 0
	}

	return DisputeWindow{
		CanDispute:    now >= openAt,
		TimeRemaining: remaining,
		CanDisputeAt:  openAt,
	}
}
