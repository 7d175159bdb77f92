package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"` // guard_violation / chain_revert / connectivity / mirror_sync
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type ChallengeResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"` // exact text to personal_sign
}

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// EscrowStateResponse is the authoritative chain snapshot of a job's escrow.
type EscrowStateResponse struct {
	Contract         string `json:"contract"`
	Client           string `json:"client"`
	Freelancer       string `json:"freelancer,omitempty"`
	Arbitrator       string `json:"arbitrator"`
	Status           string `json:"status"`
	SalaryETH        string `json:"salary_eth"`
	PlatformFeeETH   string `json:"platform_fee_eth"`
	FreelancerETH    string `json:"freelancer_eth"`
	BalanceETH       string `json:"balance_eth,omitempty"`
	WorkSubmittedAt  int64  `json:"work_submitted_at,omitempty"`
	ApprovalTimeout  int64  `json:"approval_timeout"`
	CanDispute       bool   `json:"can_dispute"`
	DisputeRemaining int64  `json:"dispute_remaining_seconds"`
	CanDisputeAt     int64  `json:"can_dispute_at,omitempty"`
}

type FundingEstimateResponse struct {
	SalaryETH  string `json:"salary_eth"`
	TotalETH   string `json:"total_eth"`
	ApproxUSD  string `json:"approx_usd"` // advisory display figure only
	FeePercent int    `json:"fee_percent"`
}
