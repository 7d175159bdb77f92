package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleArbitrator = "arbitrator"
)

func IsValidRole(role string) bool {
	return role == RoleClient || role == RoleFreelancer || role == RoleArbitrator
}

type User struct {
	ID            uuid.UUID `json:"id"`
	Role          string    `json:"role"`
	DisplayName   *string   `json:"display_name,omitempty"`
	WalletAddress string    `json:"wallet_address"` // canonical 0x hex
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
}

// WalletNonce is a one-shot login challenge. The wallet signs it; consuming
// it marks it used so a captured signature cannot replay.
type WalletNonce struct {
	ID        uuid.UUID  `json:"id"`
	Nonce     string     `json:"nonce"`
	UserID    *uuid.UUID `json:"-"`
	CreatedAt time.Time  `json:"-"`
	ExpiresAt time.Time  `json:"-"`
	Used      bool       `json:"-"`
}
