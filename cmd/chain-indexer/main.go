package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/db"
	"github.com/jobmate/backend/internal/escrow"
	"github.com/jobmate/backend/internal/events"
	"github.com/jobmate/backend/internal/models"
	"github.com/jobmate/backend/internal/repositories"
)

// The indexer is the repair loop for the mirror: it re-reads every live
// escrow from the chain and writes the authoritative state back, catching
// mirror writes the API lost and transitions made outside the API entirely.
const (
	redisDisputeNotified = "chain-indexer:dispute-notified:"
	notifiedTTL          = 7 * 24 * time.Hour
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	backend, err := chain.Dial(cfg.EthRPCURL)
	if err != nil {
		log.Fatal("failed to connect to eth rpc", zap.Error(err))
	}
	factoryAddr, err := chain.ParseAddress(cfg.JobFactoryAddress)
	if err != nil {
		log.Fatal("invalid JOB_FACTORY_ADDRESS", zap.Error(err))
	}
	gateway := chain.NewGateway(backend, big.NewInt(cfg.ChainID), factoryAddr, cfg.TxConfirmTimeout, log)

	jobRepo := repositories.NewJobRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	log.Info("chain indexer started",
		zap.String("rpc", cfg.EthRPCURL),
		zap.Int64("chain_id", cfg.ChainID),
		zap.Duration("poll_interval", cfg.IndexerPollInterval),
	)

	ticker := time.NewTicker(cfg.IndexerPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := resyncAll(ctx, gateway, jobRepo, publisher, rdb, log); err != nil {
				log.Error("resync cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down chain indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func resyncAll(
	ctx context.Context,
	gateway *chain.Gateway,
	jobRepo *repositories.JobRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) error {
	jobs, err := jobRepo.ListMirrored(ctx)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := resyncOne(ctx, gateway, jobRepo, publisher, rdb, &job, log); err != nil {
			log.Warn("failed to resync job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func resyncOne(
	ctx context.Context,
	gateway *chain.Gateway,
	jobRepo *repositories.JobRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	job *models.Job,
	log *zap.Logger,
) error {
	snap, err := gateway.JobSnapshot(ctx, common.HexToAddress(*job.EscrowAddress))
	if err != nil {
		return err
	}

	chainStatus := snap.Status.String()
	mirrored := ""
	if job.BlockchainStatus != nil {
		mirrored = *job.BlockchainStatus
	}

	if mirrored != chainStatus {
		if err := writeMirror(ctx, jobRepo, job, snap); err != nil {
			return err
		}

		log.Info("mirror repaired",
			zap.String("job_id", job.ID.String()),
			zap.String("was", mirrored),
			zap.String("now", chainStatus),
		)

		_ = publisher.Publish(ctx, events.StreamEscrow, events.Event{
			Type: events.EventEscrowStatusChanged,
			Payload: map[string]any{
				"job_id":     job.ID.String(),
				"old_status": mirrored,
				"new_status": chainStatus,
				"source":     "indexer",
			},
		})
	}

	// Notify once when a dispute window opens.
	win := escrow.Window(snap.WorkSubmittedAt, snap.ApprovalTimeout, time.Now().Unix())
	if win.CanDispute && snap.Status == escrow.StatusSubmitted {
		key := redisDisputeNotified + job.ID.String()
		set, err := rdb.SetNX(ctx, key, "1", notifiedTTL).Result()
		if err == nil && set {
			_ = publisher.Publish(ctx, events.StreamEscrow, events.Event{
				Type: events.EventDisputeWindowOpened,
				Payload: map[string]any{
					"job_id":         job.ID.String(),
					"can_dispute_at": win.CanDisputeAt,
				},
			})
		}
	}
	return nil
}

func writeMirror(ctx context.Context, jobRepo *repositories.JobRepo, job *models.Job, snap *escrow.Job) error {
	status := snap.Status.String()
	m := repositories.MirrorUpdate{BlockchainStatus: &status}
	if snap.Assigned() {
		wallet := snap.Freelancer.Hex()
		m.AssignedFreelancerWallet = &wallet
	}
	if snap.Amount != nil && snap.Amount.Sign() > 0 {
		// amount is the full on-chain deposit, fee included
		eth := chain.FormatEther(snap.Amount)
		m.FundedAmountETH = &eth
	}
	if err := jobRepo.UpdateMirror(ctx, job.ID, m); err != nil {
		return err
	}

	if snap.Status.Terminal() && job.Status != models.JobStatusClosed {
		return jobRepo.UpdateStatus(ctx, job.ID, models.JobStatusClosed)
	}
	return nil
}
