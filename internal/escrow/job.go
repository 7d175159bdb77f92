package escrow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Job is the authoritative on-chain snapshot of a single escrow contract.
// It is read from the chain before every guarded action and never trusted
// from the off-chain mirror.
type Job struct {
	Contract         common.Address `json:"contract"`
	Client           common.Address `json:"client"`
	Freelancer       common.Address `json:"freelancer"`
	Arbitrator       common.Address `json:"arbitrator"`
	Amount           *big.Int       `json:"amount"`
	PlatformFee      *big.Int       `json:"platform_fee"`
	FreelancerAmount *big.Int       `json:"freelancer_amount"`
	Status           Status         `json:"status"`
	JobID            string         `json:"job_id"`
	Title            string         `json:"title"`
	WorkSubmittedAt  int64          `json:"work_submitted_at"`
	ApprovalTimeout  int64          `json:"approval_timeout"`
}

// Assigned reports whether a freelancer has been bound on-chain.
func (j *Job) Assigned() bool {
	return j.Freelancer != (common.Address{})
}

// Role is the caller's position relative to a job.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleArbitrator Role = "arbitrator"
)

// Actor identifies who is attempting a transition. Wallet is the connected
// wallet address; role guards compare it against the on-chain parties.
type Actor struct {
	Role   Role
	Wallet common.Address
}
