package escrow

import "fmt"

// Status mirrors the uint8 status stored by the JobEscrow contract.
// The integer values are part of the contract ABI and must not be reordered.
type Status int

const (
	StatusCreated    Status = 0
	StatusFunded     Status = 1
	StatusInProgress Status = 2
	StatusSubmitted  Status = 3
	StatusCompleted  Status = 4
	StatusDisputed   Status = 5
	StatusRefunded   Status = 6
)

var statusLabels = map[Status]string{
	StatusCreated:    "Created",
	StatusFunded:     "Funded",
	StatusInProgress: "In Progress",
	StatusSubmitted:  "Work Submitted",
	StatusCompleted:  "Completed",
	StatusDisputed:   "Disputed",
	StatusRefunded:   "Refunded",
}

func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// Valid reports whether s is one of the seven contract statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal reports whether the escrow can never leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRefunded
}
