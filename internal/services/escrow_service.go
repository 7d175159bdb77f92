package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/escrow"
	"github.com/jobmate/backend/internal/events"
	"github.com/jobmate/backend/internal/models"
	"github.com/jobmate/backend/internal/repositories"
)

// Ledger is the chain surface the escrow service needs. *chain.Gateway
// implements it; tests substitute a fake.
type Ledger interface {
	JobSnapshot(ctx context.Context, contractAddr common.Address) (*escrow.Job, error)
	JobContract(ctx context.Context, jobID string) (common.Address, error)
	EscrowBalance(ctx context.Context, contractAddr common.Address) (*big.Int, error)

	CreateJob(ctx context.Context, signer *chain.Signer, jobID, title string) (common.Address, error)
	Fund(ctx context.Context, signer *chain.Signer, contractAddr common.Address, feePercent int64, value *big.Int) error
	AssignFreelancer(ctx context.Context, signer *chain.Signer, contractAddr, freelancer common.Address) error
	SubmitWork(ctx context.Context, signer *chain.Signer, contractAddr common.Address) error
	ApproveWork(ctx context.Context, signer *chain.Signer, contractAddr common.Address) error
	InitiateDispute(ctx context.Context, signer *chain.Signer, contractAddr common.Address) error
	ReleaseFundsToFreelancer(ctx context.Context, signer *chain.Signer, contractAddr common.Address) error
	RefundToClient(ctx context.Context, signer *chain.Signer, contractAddr common.Address) error
	CancelAndRefund(ctx context.Context, signer *chain.Signer, contractAddr common.Address) error
}

// JobStore is the slice of the job repository the escrow service uses.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateMirror(ctx context.Context, id uuid.UUID, m repositories.MirrorUpdate) error
	AcceptedApplication(ctx context.Context, jobID uuid.UUID) (*models.JobApplication, error)
}

// AuditStore records lifecycle actions. Audit failures never fail the action.
type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// ActionResult is what a guarded escrow action returns: the fresh post-action
// chain snapshot with its dispute window, plus a non-fatal mirror warning when
// the off-chain write-back failed. MirrorWarning being set does NOT mean the
// action failed — the chain already confirmed it.
type ActionResult struct {
	Job           *escrow.Job
	Window        escrow.DisputeWindow
	MirrorWarning error
}

type EscrowService struct {
	ledger    Ledger
	keyring   *chain.Keyring
	jobs      JobStore
	audit     AuditStore
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewEscrowService(
	ledger Ledger,
	keyring *chain.Keyring,
	jobs JobStore,
	audit AuditStore,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		ledger:    ledger,
		keyring:   keyring,
		jobs:      jobs,
		audit:     audit,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Actor describes who is performing an action, resolved from the
// authenticated session.
type Actor struct {
	UserID uuid.UUID
	Role   string
	Wallet common.Address
}

func (a Actor) escrowActor() escrow.Actor {
	return escrow.Actor{Role: escrow.Role(a.Role), Wallet: a.Wallet}
}

// Snapshot returns the authoritative on-chain state of a job's escrow plus
// the dispute window computed against the service clock.
func (s *EscrowService) Snapshot(ctx context.Context, jobID uuid.UUID) (*escrow.Job, escrow.DisputeWindow, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, escrow.DisputeWindow{}, err
	}
	if !job.Escrowed() {
		return nil, escrow.DisputeWindow{}, fmt.Errorf("job %s has no escrow contract", jobID)
	}

	snap, err := s.ledger.JobSnapshot(ctx, common.HexToAddress(*job.EscrowAddress))
	if err != nil {
		return nil, escrow.DisputeWindow{}, &escrow.ConnectivityError{Reason: err.Error()}
	}
	win := escrow.Window(snap.WorkSubmittedAt, snap.ApprovalTimeout, s.now().Unix())
	return snap, win, nil
}

// Balance reads the escrow contract's current ETH holdings.
func (s *EscrowService) Balance(ctx context.Context, jobID uuid.UUID) (string, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	if !job.Escrowed() {
		return "0", nil
	}
	wei, err := s.ledger.EscrowBalance(ctx, common.HexToAddress(*job.EscrowAddress))
	if err != nil {
		return "", &escrow.ConnectivityError{Reason: err.Error()}
	}
	return chain.FormatEther(wei), nil
}

// FundJob creates the escrow contract if the job has none yet, then funds it
// with salary plus the platform fee. salaryETH is a decimal ETH string; the
// deposited value is salary + salary*fee/100 rounded to 4 decimals, matching
// what the contract itself will compute for the split.
func (s *EscrowService) FundJob(ctx context.Context, jobID uuid.UUID, actor Actor, salaryETH string) (*ActionResult, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	totalETH, err := chain.TotalWithFee(salaryETH, s.cfg.PlatformFeePercent)
	if err != nil {
		return nil, fmt.Errorf("invalid salary amount %q: %w", salaryETH, err)
	}
	value, err := chain.ParseEther(totalETH)
	if err != nil {
		return nil, fmt.Errorf("invalid salary amount %q: %w", salaryETH, err)
	}
	// The contract would also reject a zero deposit, but catching it here
	// means no transaction is built for a doomed fund.
	if value.Sign() <= 0 {
		return nil, &escrow.GuardViolation{
			Action: escrow.ActionFund,
			From:   escrow.StatusCreated,
			Reason: "funding amount must be greater than zero",
		}
	}

	signer, ok := s.keyring.Signer(actor.Wallet)
	if !ok {
		return nil, &escrow.ConnectivityError{Reason: "wallet not connected"}
	}

	contractAddr, err := s.ensureContract(ctx, job, signer)
	if err != nil {
		return nil, err
	}

	snap, err := s.ledger.JobSnapshot(ctx, contractAddr)
	if err != nil {
		return nil, &escrow.ConnectivityError{Reason: err.Error()}
	}
	if err := escrow.Evaluate(escrow.ActionFund, snap, actor.escrowActor(), s.now().Unix()); err != nil {
		return nil, err
	}

	if err := s.ledger.Fund(ctx, signer, contractAddr, int64(s.cfg.PlatformFeePercent), value); err != nil {
		return nil, err
	}

	return s.finish(ctx, job, actor, escrow.ActionFund, snap.Status, contractAddr, map[string]any{
		"salary_eth": salaryETH,
		"total_eth":  totalETH,
	})
}

// AssignFreelancer binds the accepted applicant's wallet on-chain. The wallet
// comes from the accepted application, the one off-chain fact the contract
// cannot know before assignment.
func (s *EscrowService) AssignFreelancer(ctx context.Context, jobID uuid.UUID, actor Actor) (*ActionResult, error) {
	job, snap, signer, err := s.prepare(ctx, jobID, actor, escrow.ActionAssign)
	if err != nil {
		return nil, err
	}

	app, err := s.jobs.AcceptedApplication(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("no accepted application for job %s: %w", jobID, err)
	}
	freelancer, err := chain.ParseAddress(app.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("accepted application has invalid wallet: %w", err)
	}

	if err := s.ledger.AssignFreelancer(ctx, signer, snap.Contract, freelancer); err != nil {
		return nil, err
	}
	return s.finish(ctx, job, actor, escrow.ActionAssign, snap.Status, snap.Contract, map[string]any{
		"freelancer_wallet": freelancer.Hex(),
	})
}

// Perform runs one of the single-argument guarded actions: submit_work,
// approve, dispute, resolve_release, resolve_refund, cancel.
func (s *EscrowService) Perform(ctx context.Context, jobID uuid.UUID, actor Actor, action escrow.Action) (*ActionResult, error) {
	switch action {
	case escrow.ActionFund, escrow.ActionAssign:
		return nil, fmt.Errorf("action %s requires its dedicated entry point", action)
	}

	job, snap, signer, err := s.prepare(ctx, jobID, actor, action)
	if err != nil {
		return nil, err
	}

	switch action {
	case escrow.ActionSubmitWork:
		err = s.ledger.SubmitWork(ctx, signer, snap.Contract)
	case escrow.ActionApprove:
		err = s.ledger.ApproveWork(ctx, signer, snap.Contract)
	case escrow.ActionDispute:
		err = s.ledger.InitiateDispute(ctx, signer, snap.Contract)
	case escrow.ActionResolveRelease:
		err = s.ledger.ReleaseFundsToFreelancer(ctx, signer, snap.Contract)
	case escrow.ActionResolveRefund:
		err = s.ledger.RefundToClient(ctx, signer, snap.Contract)
	case escrow.ActionCancel:
		err = s.ledger.CancelAndRefund(ctx, signer, snap.Contract)
	default:
		return nil, &escrow.GuardViolation{Action: action, From: snap.Status, Reason: "unknown action"}
	}
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, job, actor, action, snap.Status, snap.Contract, nil)
}

// prepare does the shared front half of every guarded action: load the job
// record, take a fresh chain snapshot, run the transition guards against it,
// and resolve a signer for the acting wallet. Guards run before any
// transaction is built, so a doomed action costs no gas.
func (s *EscrowService) prepare(ctx context.Context, jobID uuid.UUID, actor Actor, action escrow.Action) (*models.Job, *escrow.Job, *chain.Signer, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !job.Escrowed() {
		return nil, nil, nil, fmt.Errorf("job %s has no escrow contract", jobID)
	}

	snap, err := s.ledger.JobSnapshot(ctx, common.HexToAddress(*job.EscrowAddress))
	if err != nil {
		return nil, nil, nil, &escrow.ConnectivityError{Reason: err.Error()}
	}

	if err := escrow.Evaluate(action, snap, actor.escrowActor(), s.now().Unix()); err != nil {
		return nil, nil, nil, err
	}

	signer, ok := s.keyring.Signer(actor.Wallet)
	if !ok {
		return nil, nil, nil, &escrow.ConnectivityError{Reason: "wallet not connected"}
	}
	return job, snap, signer, nil
}

// finish does the shared back half after a confirmed chain write: re-read the
// authoritative state, mirror it off-chain best-effort, audit, publish. The
// mirror write is attempted exactly once and never rolls back the chain.
func (s *EscrowService) finish(
	ctx context.Context,
	job *models.Job,
	actor Actor,
	action escrow.Action,
	oldStatus escrow.Status,
	contractAddr common.Address,
	meta map[string]any,
) (*ActionResult, error) {
	fresh, err := s.ledger.JobSnapshot(ctx, contractAddr)
	if err != nil {
		// The action confirmed; only the re-read failed. Surface stale-free
		// state as a mirror problem, not an action failure.
		fresh = nil
		err = &escrow.MirrorSyncError{JobID: job.ID.String(), Err: err}
	}

	result := &ActionResult{Job: fresh}
	if fresh != nil {
		result.Window = escrow.Window(fresh.WorkSubmittedAt, fresh.ApprovalTimeout, s.now().Unix())
	}

	if mirrorErr := s.mirror(ctx, job, fresh); mirrorErr != nil {
		result.MirrorWarning = &escrow.MirrorSyncError{JobID: job.ID.String(), Err: mirrorErr}
		s.log.Warn("mirror update failed after confirmed chain write",
			zap.String("job_id", job.ID.String()),
			zap.String("action", string(action)),
			zap.Error(mirrorErr),
		)
	} else if err != nil {
		result.MirrorWarning = err
	}

	newStatus := oldStatus
	if fresh != nil {
		newStatus = fresh.Status
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actor.UserID,
		ActorType:   actorType(actor.Role),
		Action:      fmt.Sprintf("escrow_%s", action),
		EntityType:  "job",
		EntityID:    &job.ID,
		Meta: mergeMeta(meta, map[string]any{
			"old_status": oldStatus.String(),
			"new_status": newStatus.String(),
			"contract":   contractAddr.Hex(),
		}),
	})

	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventEscrowStatusChanged,
		Payload: map[string]any{
			"job_id":     job.ID.String(),
			"action":     string(action),
			"old_status": oldStatus.String(),
			"new_status": newStatus.String(),
		},
	})

	return result, nil
}

// mirror writes the denormalized chain facts back to the job row. Called once
// per action; errors are the caller's to downgrade into warnings.
func (s *EscrowService) mirror(ctx context.Context, job *models.Job, snap *escrow.Job) error {
	if snap == nil {
		return nil
	}

	status := snap.Status.String()
	contract := snap.Contract.Hex()
	m := repositories.MirrorUpdate{
		EscrowAddress:    &contract,
		BlockchainStatus: &status,
	}
	if snap.Assigned() {
		wallet := snap.Freelancer.Hex()
		m.AssignedFreelancerWallet = &wallet
	}
	if snap.Amount != nil && snap.Amount.Sign() > 0 {
		// amount on-chain is the full deposit; fee and freelancer cut are
		// slices of it, not additions to it.
		eth := chain.FormatEther(snap.Amount)
		m.FundedAmountETH = &eth
	}
	if err := s.jobs.UpdateMirror(ctx, job.ID, m); err != nil {
		return err
	}

	// Keep the listing status roughly in step with the escrow.
	listing := job.Status
	switch {
	case snap.Status.Terminal():
		listing = models.JobStatusClosed
	case snap.Status >= escrow.StatusFunded:
		listing = models.JobStatusInEscrow
	}
	if listing != job.Status {
		return s.jobs.UpdateStatus(ctx, job.ID, listing)
	}
	return nil
}

// ensureContract returns the job's escrow address, deploying one through the
// factory on first use.
func (s *EscrowService) ensureContract(ctx context.Context, job *models.Job, signer *chain.Signer) (common.Address, error) {
	if job.Escrowed() {
		return common.HexToAddress(*job.EscrowAddress), nil
	}

	// The factory may already hold one from a previous attempt whose mirror
	// write was lost.
	existing, err := s.ledger.JobContract(ctx, job.ID.String())
	if err != nil {
		return common.Address{}, &escrow.ConnectivityError{Reason: err.Error()}
	}
	if existing != (common.Address{}) {
		s.rememberContract(ctx, job, existing)
		return existing, nil
	}

	created, err := s.ledger.CreateJob(ctx, signer, job.ID.String(), job.Title)
	if err != nil {
		return common.Address{}, err
	}

	s.rememberContract(ctx, job, created)

	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventEscrowCreated,
		Payload: map[string]any{
			"job_id":   job.ID.String(),
			"contract": created.Hex(),
		},
	})
	return created, nil
}

func (s *EscrowService) rememberContract(ctx context.Context, job *models.Job, addr common.Address) {
	hex := addr.Hex()
	if err := s.jobs.UpdateMirror(ctx, job.ID, repositories.MirrorUpdate{EscrowAddress: &hex}); err != nil {
		s.log.Warn("failed to record escrow address",
			zap.String("job_id", job.ID.String()),
			zap.String("contract", hex),
			zap.Error(err),
		)
	}
	job.EscrowAddress = &hex
}

// EstimateFunding returns the deposit a client must make for a salary, plus
// an advisory USD figure at the configured display rate.
func (s *EscrowService) EstimateFunding(salaryETH string) (totalETH string, approxUSD string, err error) {
	totalETH, err = chain.TotalWithFee(salaryETH, s.cfg.PlatformFeePercent)
	if err != nil {
		return "", "", err
	}
	approxUSD = chain.EstimateUSD(totalETH, s.cfg.USDPerETHEstimate)
	return totalETH, approxUSD, nil
}

func actorType(role string) string {
	if role == models.RoleArbitrator {
		return "arbitrator"
	}
	return "user"
}

func mergeMeta(extra, base map[string]any) map[string]any {
	for k, v := range extra {
		base[k] = v
	}
	return base
}
