package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/escrow"
	"github.com/jobmate/backend/internal/http/dto"
	"github.com/jobmate/backend/internal/middleware"
	"github.com/jobmate/backend/internal/services"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	cfg           *config.Config
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, cfg *config.Config, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, cfg: cfg, log: log}
}

func (h *EscrowHandler) actor(c *fiber.Ctx) services.Actor {
	return services.Actor{
		UserID: middleware.GetUserID(c),
		Role:   middleware.GetRole(c),
		Wallet: middleware.GetWallet(c),
	}
}

// GetState returns the authoritative on-chain escrow state with the computed
// dispute window.
func (h *EscrowHandler) GetState(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid job id"})
	}

	snap, win, err := h.escrowService.Snapshot(c.Context(), jobID)
	if err != nil {
		return escrowError(c, err)
	}

	state := stateResponse(snap, win)
	if balance, err := h.escrowService.Balance(c.Context(), jobID); err == nil {
		state.BalanceETH = balance
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: state})
}

// GetDisputeWindow returns just the dispute eligibility timers, cheap enough
// for clients to poll.
func (h *EscrowHandler) GetDisputeWindow(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid job id"})
	}

	_, win, err := h.escrowService.Snapshot(c.Context(), jobID)
	if err != nil {
		return escrowError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: win})
}

// Estimate prices a funding transaction without sending anything.
func (h *EscrowHandler) Estimate(c *fiber.Ctx) error {
	salary := c.Query("salary_eth")
	if salary == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "salary_eth query parameter is required"})
	}

	total, usd, err := h.escrowService.EstimateFunding(salary)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.FundingEstimateResponse{
		SalaryETH:  salary,
		TotalETH:   total,
		ApproxUSD:  usd,
		FeePercent: h.cfg.PlatformFeePercent,
	}})
}

func (h *EscrowHandler) Fund(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid job id"})
	}

	var req dto.FundEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.SalaryETH == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "salary_eth is required"})
	}

	res, err := h.escrowService.FundJob(c.Context(), jobID, h.actor(c), req.SalaryETH)
	if err != nil {
		return escrowError(c, err)
	}
	return h.actionResponse(c, res)
}

func (h *EscrowHandler) Assign(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid job id"})
	}

	res, err := h.escrowService.AssignFreelancer(c.Context(), jobID, h.actor(c))
	if err != nil {
		return escrowError(c, err)
	}
	return h.actionResponse(c, res)
}

func (h *EscrowHandler) SubmitWork(c *fiber.Ctx) error {
	return h.perform(c, escrow.ActionSubmitWork)
}

func (h *EscrowHandler) Approve(c *fiber.Ctx) error {
	return h.perform(c, escrow.ActionApprove)
}

func (h *EscrowHandler) Dispute(c *fiber.Ctx) error {
	return h.perform(c, escrow.ActionDispute)
}

func (h *EscrowHandler) Cancel(c *fiber.Ctx) error {
	return h.perform(c, escrow.ActionCancel)
}

// Resolve settles a dispute either way. Arbitrator only, enforced both by the
// route middleware and again by the contract itself.
func (h *EscrowHandler) Resolve(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid job id"})
	}

	var req dto.ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	var action escrow.Action
	switch req.Outcome {
	case "release":
		action = escrow.ActionResolveRelease
	case "refund":
		action = escrow.ActionResolveRefund
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "outcome must be release or refund"})
	}

	res, err := h.escrowService.Perform(c.Context(), jobID, h.actor(c), action)
	if err != nil {
		return escrowError(c, err)
	}
	return h.actionResponse(c, res)
}

func (h *EscrowHandler) perform(c *fiber.Ctx, action escrow.Action) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid job id"})
	}

	res, err := h.escrowService.Perform(c.Context(), jobID, h.actor(c), action)
	if err != nil {
		return escrowError(c, err)
	}
	return h.actionResponse(c, res)
}

func (h *EscrowHandler) actionResponse(c *fiber.Ctx, res *services.ActionResult) error {
	resp := dto.SuccessResponse{OK: true}
	if res.Job != nil {
		resp.Data = stateResponse(res.Job, res.Window)
	}
	if res.MirrorWarning != nil {
		resp.Warning = res.MirrorWarning.Error()
	}
	return c.JSON(resp)
}

func stateResponse(j *escrow.Job, win escrow.DisputeWindow) dto.EscrowStateResponse {
	resp := dto.EscrowStateResponse{
		Contract:         j.Contract.Hex(),
		Client:           j.Client.Hex(),
		Arbitrator:       j.Arbitrator.Hex(),
		Status:           j.Status.String(),
		SalaryETH:        chain.FormatEther(j.Amount),
		PlatformFeeETH:   chain.FormatEther(j.PlatformFee),
		FreelancerETH:    chain.FormatEther(j.FreelancerAmount),
		WorkSubmittedAt:  j.WorkSubmittedAt,
		ApprovalTimeout:  j.ApprovalTimeout,
		CanDispute:       win.CanDispute,
		DisputeRemaining: win.TimeRemaining,
		CanDisputeAt:     win.CanDisputeAt,
	}
	if j.Freelancer != (common.Address{}) {
		resp.Freelancer = j.Freelancer.Hex()
	}
	return resp
}
