package escrow

// Action is a requested escrow transition.
type Action string

const (
	ActionFund           Action = "fund"
	ActionCancel         Action = "cancel"
	ActionAssign         Action = "assign"
	ActionSubmitWork     Action = "submit_work"
	ActionApprove        Action = "approve"
	ActionDispute        Action = "dispute"
	ActionResolveRelease Action = "resolve_release"
	ActionResolveRefund  Action = "resolve_refund"
)

// Actions lists every action the machine knows, in lifecycle order.
var Actions = []Action{
	ActionFund, ActionCancel, ActionAssign, ActionSubmitWork,
	ActionApprove, ActionDispute, ActionResolveRelease, ActionResolveRefund,
}

type rule struct {
	from Status
	to   Status
	role Role
	// guard returns the violated condition, or "" when the transition is legal.
	// State and role membership are checked before guard runs.
	guard func(j *Job, a Actor, now int64) string
}

var rules = map[Action]rule{
	ActionFund: {
		from: StatusCreated, to: StatusFunded, role: RoleClient,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Client {
				return "caller wallet is not the on-chain client"
			}
			return ""
		},
	},
	ActionCancel: {
		from: StatusCreated, to: StatusRefunded, role: RoleClient,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Client {
				return "caller wallet is not the on-chain client"
			}
			// Off-chain acceptance does not count: only an on-chain
			// assignment blocks cancellation.
			if j.Assigned() {
				return "freelancer already assigned on-chain"
			}
			return ""
		},
	},
	ActionAssign: {
		from: StatusFunded, to: StatusInProgress, role: RoleClient,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Client {
				return "caller wallet is not the on-chain client"
			}
			return ""
		},
	},
	ActionSubmitWork: {
		from: StatusInProgress, to: StatusSubmitted, role: RoleFreelancer,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Freelancer {
				return "caller wallet is not the assigned freelancer"
			}
			return ""
		},
	},
	ActionApprove: {
		from: StatusSubmitted, to: StatusCompleted, role: RoleClient,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Client {
				return "caller wallet is not the on-chain client"
			}
			return ""
		},
	},
	ActionDispute: {
		from: StatusSubmitted, to: StatusDisputed, role: RoleFreelancer,
		guard: func(j *Job, a Actor, now int64) string {
			if a.Wallet != j.Freelancer {
				return "caller wallet is not the assigned freelancer"
			}
			if !Window(j.WorkSubmittedAt, j.ApprovalTimeout, now).CanDispute {
				return "approval timeout not reached"
			}
			return ""
		},
	},
	ActionResolveRelease: {
		from: StatusDisputed, to: StatusCompleted, role: RoleArbitrator,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Arbitrator {
				return "caller wallet is not the designated arbitrator"
			}
			return ""
		},
	},
	ActionResolveRefund: {
		from: StatusDisputed, to: StatusRefunded, role: RoleArbitrator,
		guard: func(j *Job, a Actor, _ int64) string {
			if a.Wallet != j.Arbitrator {
				return "caller wallet is not the designated arbitrator"
			}
			return ""
		},
	},
}

// Target returns the status a legal action lands in.
func Target(action Action) (Status, bool) {
	r, ok := rules[action]
	if !ok {
		return 0, false
	}
	return r.to, true
}

// Evaluate checks a requested transition against the rule table. It returns
// nil when the transition is legal and a *GuardViolation naming the violated
// guard otherwise. The machine never silently no-ops. Wallet comparison is on
// canonical 20-byte addresses, so mixed-case hex input cannot cause spurious
// failures.
//
// Parameter validation (funding amount, candidate address shape) happens at
// the dispatcher boundary before the chosen transaction is built; Evaluate
// covers the state, role and time guards of the lifecycle itself.
func Evaluate(action Action, j *Job, a Actor, now int64) error {
	r, ok := rules[action]
	if !ok {
		return &GuardViolation{Action: action, From: j.Status, Reason: "unknown action"}
	}
	if j.Status != r.from {
		return &GuardViolation{
			Action: action,
			From:   j.Status,
			Reason: "not allowed from status " + j.Status.String(),
		}
	}
	if a.Role != r.role {
		return &GuardViolation{
			Action: action,
			From:   j.Status,
			Reason: "requires role " + string(r.role) + ", caller is " + string(a.Role),
		}
	}
	if reason := r.guard(j, a, now); reason != "" {
		return &GuardViolation{Action: action, From: j.Status, Reason: reason}
	}
	return nil
}
