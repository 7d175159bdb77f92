package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/http/handlers"
	"github.com/jobmate/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	escrowHandler *handlers.EscrowHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public): nonce challenge + signature verification
	api.Get("/auth/challenge", authHandler.Challenge)
	api.Post("/auth/verify", authHandler.Verify)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Put("/me", userHandler.UpdateProfile)

	// Jobs and applications
	protected.Post("/jobs", jobHandler.CreateJob)
	protected.Get("/jobs", jobHandler.ListJobs)
	protected.Get("/jobs/:id", jobHandler.GetJob)
	protected.Post("/jobs/:id/apply", jobHandler.Apply)
	protected.Get("/jobs/:id/applications", jobHandler.ListApplications)
	protected.Get("/jobs/:id/audit", jobHandler.AuditTrail)
	protected.Post("/applications/:appId/accept", jobHandler.AcceptApplication)

	// Escrow lifecycle
	protected.Get("/escrow/estimate", escrowHandler.Estimate)
	protected.Get("/jobs/:id/escrow", escrowHandler.GetState)
	protected.Get("/jobs/:id/escrow/dispute-window", escrowHandler.GetDisputeWindow)
	protected.Post("/jobs/:id/escrow/fund", escrowHandler.Fund)
	protected.Post("/jobs/:id/escrow/assign", escrowHandler.Assign)
	protected.Post("/jobs/:id/escrow/submit-work", escrowHandler.SubmitWork)
	protected.Post("/jobs/:id/escrow/approve", escrowHandler.Approve)
	protected.Post("/jobs/:id/escrow/dispute", escrowHandler.Dispute)
	protected.Post("/jobs/:id/escrow/cancel", escrowHandler.Cancel)
	protected.Post("/jobs/:id/escrow/resolve", middleware.ArbitratorMiddleware(), escrowHandler.Resolve)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
