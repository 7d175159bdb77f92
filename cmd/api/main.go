package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/db"
	"github.com/jobmate/backend/internal/events"
	apphttp "github.com/jobmate/backend/internal/http"
	"github.com/jobmate/backend/internal/http/handlers"
	"github.com/jobmate/backend/internal/repositories"
	"github.com/jobmate/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Chain
	backend, err := chain.Dial(cfg.EthRPCURL)
	if err != nil {
		log.Fatal("failed to connect to eth rpc", zap.Error(err))
	}
	factoryAddr, err := chain.ParseAddress(cfg.JobFactoryAddress)
	if err != nil {
		log.Fatal("invalid JOB_FACTORY_ADDRESS", zap.Error(err))
	}
	gateway := chain.NewGateway(backend, big.NewInt(cfg.ChainID), factoryAddr, cfg.TxConfirmTimeout, log)
	keyring, err := chain.NewKeyring(big.NewInt(cfg.ChainID), cfg.SignerKeys)
	if err != nil {
		log.Fatal("failed to load signer keys", zap.Error(err))
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	jobRepo := repositories.NewJobRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	escrowService := services.NewEscrowService(gateway, keyring, jobRepo, auditRepo, publisher, cfg, log)
	jobService := services.NewJobService(jobRepo, auditRepo, publisher, cfg, log)
	walletService := services.NewWalletService(walletRepo, userRepo, auditRepo, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(walletService, log)
	userHandler := handlers.NewUserHandler(userRepo, log)
	jobHandler := handlers.NewJobHandler(jobService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, cfg, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Expired login nonces pile up; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := walletRepo.PurgeExpired(ctx); err != nil {
					log.Warn("nonce purge failed", zap.Error(err))
				} else if n > 0 {
					log.Debug("purged expired nonces", zap.Int64("count", n))
				}
			}
		}
	}()

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, userHandler, jobHandler, escrowHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
