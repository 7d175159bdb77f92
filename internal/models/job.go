package models

import (
	"time"

	"github.com/google/uuid"
)

// Off-chain job listing statuses. Distinct from the on-chain escrow status:
// this is display/listing state only.
const (
	JobStatusOpen     = "open"
	JobStatusInEscrow = "in_escrow"
	JobStatusClosed   = "closed"
)

// Job is the off-chain job record. The blockchain_* columns are the mirror:
// denormalized copies of on-chain facts kept for listing views. They are
// never the source of truth for money or escrow status — guarded actions
// always re-read the chain.
type Job struct {
	ID           uuid.UUID `json:"id"`
	ClientUserID uuid.UUID `json:"client_user_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Category     *string   `json:"category,omitempty"`
	BudgetUSD    *string   `json:"budget_usd,omitempty"` // numeric as string
	Status       string    `json:"status"`

	// Mirror of on-chain facts (best-effort, may be stale)
	EscrowAddress            *string `json:"escrow_address,omitempty"`
	BlockchainStatus         *string `json:"blockchain_status,omitempty"`
	AssignedFreelancerWallet *string `json:"assigned_freelancer_wallet,omitempty"`
	FundedAmountETH          *string `json:"funded_amount_eth,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Escrowed reports whether an escrow contract has been bound to this job.
func (j *Job) Escrowed() bool {
	return j.EscrowAddress != nil && *j.EscrowAddress != ""
}

// Application statuses
const (
	ApplicationStatusApplied  = "applied"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// JobApplication records a freelancer's interest in a job, including the
// wallet the client will later bind on-chain. This pre-assignment wallet
// bookkeeping is the one fact the contract cannot know before assignment.
type JobApplication struct {
	ID               uuid.UUID `json:"id"`
	JobID            uuid.UUID `json:"job_id"`
	FreelancerUserID uuid.UUID `json:"freelancer_user_id"`
	WalletAddress    string    `json:"wallet_address"`
	CoverLetter      *string   `json:"cover_letter,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}
