package middleware

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/auth"
	"github.com/jobmate/backend/internal/config"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxWallet = "wallet"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxRole, claims.Role)
		c.Locals(CtxWallet, claims.WalletAddress)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(CtxRole).(string)
	return role
}

func GetWallet(c *fiber.Ctx) common.Address {
	hex, _ := c.Locals(CtxWallet).(string)
	return common.HexToAddress(hex)
}

// ArbitratorMiddleware restricts a route to the configured arbitration wallet.
func ArbitratorMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetRole(c) != "arbitrator" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "arbitrator access required"})
		}
		return c.Next()
	}
}
