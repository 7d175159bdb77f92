package dto

type VerifyWalletRequest struct {
	WalletAddress string `json:"wallet_address"`
	Nonce         string `json:"nonce"`
	Signature     string `json:"signature"` // hex personal_sign output
	Role          string `json:"role,omitempty"`
}

type CreateJobRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	BudgetUSD   *string `json:"budget_usd,omitempty"`
}

type ApplyRequest struct {
	WalletAddress string  `json:"wallet_address"`
	CoverLetter   *string `json:"cover_letter,omitempty"`
}

type FundEscrowRequest struct {
	SalaryETH string `json:"salary_eth"`
}

type ResolveDisputeRequest struct {
	// "release" pays the freelancer, "refund" returns everything to the client
	Outcome string `json:"outcome"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}
