package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/auth"
	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/models"
	"github.com/jobmate/backend/internal/repositories"
)

// WalletService handles wallet-signature login: hand out a one-shot nonce,
// verify the personal_sign over it, upsert the user and issue a JWT.
type WalletService struct {
	walletRepo *repositories.WalletRepo
	userRepo   *repositories.UserRepo
	auditRepo  *repositories.AuditRepo
	cfg        *config.Config
	log        *zap.Logger
}

func NewWalletService(
	walletRepo *repositories.WalletRepo,
	userRepo *repositories.UserRepo,
	auditRepo *repositories.AuditRepo,
	cfg *config.Config,
	log *zap.Logger,
) *WalletService {
	return &WalletService{
		walletRepo: walletRepo,
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		cfg:        cfg,
		log:        log,
	}
}

// Challenge issues a fresh nonce and returns the exact message the wallet
// must sign.
func (s *WalletService) Challenge(ctx context.Context) (nonce, message string, err error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	nonce = hex.EncodeToString(buf)

	if _, err := s.walletRepo.CreateNonce(ctx, nonce, s.cfg.NonceTTL); err != nil {
		return "", "", fmt.Errorf("failed to create login nonce: %w", err)
	}
	return nonce, chain.SignableMessage(nonce), nil
}

type VerifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	Nonce         string `json:"nonce"`
	Signature     string `json:"signature"` // hex, personal_sign output
	Role          string `json:"role"`      // client/freelancer, first login only
}

type VerifyResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Verify consumes the nonce, recovers the signer from the signature and logs
// the wallet in. The nonce is one-shot: a captured signature cannot replay.
func (s *WalletService) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	wallet, err := chain.ParseAddress(req.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	if err := s.walletRepo.ConsumeNonce(ctx, req.Nonce); err != nil {
		return nil, fmt.Errorf("invalid or expired nonce: %w", err)
	}

	sig := common.FromHex(req.Signature)
	if err := chain.VerifyOwnership(req.Nonce, sig, wallet); err != nil {
		return nil, fmt.Errorf("wallet signature verification failed: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleClient
	}
	if !models.IsValidRole(role) || role == models.RoleArbitrator {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	user, err := s.userRepo.UpsertByWallet(ctx, wallet.Hex(), role)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// The arbitrator role is never self-assigned: it is granted to the
	// configured arbitration wallet only.
	if s.cfg.ArbitratorAddress != "" && wallet == common.HexToAddress(s.cfg.ArbitratorAddress) {
		user.Role = models.RoleArbitrator
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, user.ID, user.Role, user.WalletAddress, s.cfg.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &user.ID,
		ActorType:   "user",
		Action:      "wallet_login",
		EntityType:  "user",
		EntityID:    &user.ID,
		Meta:        map[string]any{"wallet": user.WalletAddress},
	})

	s.log.Info("wallet login",
		zap.String("user_id", user.ID.String()),
		zap.String("wallet", user.WalletAddress),
	)

	return &VerifyResult{Token: token, User: user}, nil
}
