package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/http/dto"
	"github.com/jobmate/backend/internal/services"
)

type AuthHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewAuthHandler(walletService *services.WalletService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{walletService: walletService, log: log}
}

// Challenge hands out a one-shot nonce and the exact message to sign.
func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	nonce, message, err := h.walletService.Challenge(c.Context())
	if err != nil {
		h.log.Error("challenge failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.ChallengeResponse{Nonce: nonce, Message: message})
}

// Verify checks the wallet signature over the nonce and issues a JWT.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.WalletAddress == "" || req.Nonce == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "wallet_address, nonce and signature are required"})
	}

	res, err := h.walletService.Verify(c.Context(), services.VerifyRequest{
		WalletAddress: req.WalletAddress,
		Nonce:         req.Nonce,
		Signature:     req.Signature,
		Role:          req.Role,
	})
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.AuthResponse{Token: res.Token, User: res.User})
}
