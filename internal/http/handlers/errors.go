package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jobmate/backend/internal/escrow"
	"github.com/jobmate/backend/internal/http/dto"
)

// escrowError maps the escrow error taxonomy onto HTTP. Guard rejections and
// chain reverts are conflicts with current state; connectivity problems are
// the upstream's fault, not the caller's.
func escrowError(c *fiber.Ctx, err error) error {
	var gv *escrow.GuardViolation
	if errors.As(err, &gv) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: gv.Error(), Kind: "guard_violation"})
	}

	var cr *escrow.ChainRevert
	if errors.As(err, &cr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: cr.Error(), Kind: "chain_revert"})
	}

	var ce *escrow.ConnectivityError
	if errors.As(err, &ce) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: ce.Error(), Kind: "connectivity"})
	}

	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
}
