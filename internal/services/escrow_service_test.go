package services

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/escrow"
	"github.com/jobmate/backend/internal/events"
	"github.com/jobmate/backend/internal/models"
	"github.com/jobmate/backend/internal/repositories"
)

// --- fakes ---

type fakeLedger struct {
	snap     *escrow.Job
	writes   []string
	writeErr error
	snapErr  error
	factory  common.Address // getJobContract result
	created  common.Address
}

func (f *fakeLedger) JobSnapshot(ctx context.Context, addr common.Address) (*escrow.Job, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	cp := *f.snap
	return &cp, nil
}

func (f *fakeLedger) JobContract(ctx context.Context, jobID string) (common.Address, error) {
	return f.factory, nil
}

func (f *fakeLedger) EscrowBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeLedger) write(name string, to escrow.Status) error {
	f.writes = append(f.writes, name)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.snap.Status = to
	return nil
}

func (f *fakeLedger) CreateJob(ctx context.Context, s *chain.Signer, jobID, title string) (common.Address, error) {
	f.writes = append(f.writes, "createJob")
	return f.created, nil
}

func (f *fakeLedger) Fund(ctx context.Context, s *chain.Signer, addr common.Address, feePercent int64, value *big.Int) error {
	f.writes = append(f.writes, "fund:"+value.String())
	if f.writeErr != nil {
		return f.writeErr
	}
	f.snap.Status = escrow.StatusFunded
	f.snap.Amount = value
	return nil
}

func (f *fakeLedger) AssignFreelancer(ctx context.Context, s *chain.Signer, addr, freelancer common.Address) error {
	if err := f.write("assignFreelancer", escrow.StatusInProgress); err != nil {
		return err
	}
	f.snap.Freelancer = freelancer
	return nil
}

func (f *fakeLedger) SubmitWork(ctx context.Context, s *chain.Signer, addr common.Address) error {
	return f.write("submitWork", escrow.StatusSubmitted)
}

func (f *fakeLedger) ApproveWork(ctx context.Context, s *chain.Signer, addr common.Address) error {
	return f.write("approveWork", escrow.StatusCompleted)
}

func (f *fakeLedger) InitiateDispute(ctx context.Context, s *chain.Signer, addr common.Address) error {
	return f.write("initiateDispute", escrow.StatusDisputed)
}

func (f *fakeLedger) ReleaseFundsToFreelancer(ctx context.Context, s *chain.Signer, addr common.Address) error {
	return f.write("releaseFundsToFreelancer", escrow.StatusCompleted)
}

func (f *fakeLedger) RefundToClient(ctx context.Context, s *chain.Signer, addr common.Address) error {
	return f.write("refundToClient", escrow.StatusRefunded)
}

func (f *fakeLedger) CancelAndRefund(ctx context.Context, s *chain.Signer, addr common.Address) error {
	return f.write("cancelAndRefund", escrow.StatusRefunded)
}

type fakeJobs struct {
	job       *models.Job
	mirrorErr error
	mirrors   []repositories.MirrorUpdate
	statuses  []string
	accepted  *models.JobApplication
}

func (f *fakeJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	cp := *f.job
	return &cp, nil
}

func (f *fakeJobs) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeJobs) UpdateMirror(ctx context.Context, id uuid.UUID, m repositories.MirrorUpdate) error {
	if f.mirrorErr != nil {
		return f.mirrorErr
	}
	f.mirrors = append(f.mirrors, m)
	return nil
}

func (f *fakeJobs) AcceptedApplication(ctx context.Context, jobID uuid.UUID) (*models.JobApplication, error) {
	if f.accepted == nil {
		return nil, errors.New("no accepted application")
	}
	return f.accepted, nil
}

type fakeAudit struct {
	entries []models.AuditLog
}

func (f *fakeAudit) Log(ctx context.Context, entry models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	published []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

// --- fixture ---

type fixture struct {
	svc    *EscrowService
	ledger *fakeLedger
	jobs   *fakeJobs
	audit  *fakeAudit
	pub    *fakePublisher
	client Actor
	now    int64
}

func newFixture(t *testing.T, status escrow.Status) *fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	clientWallet := crypto.PubkeyToAddress(key.PublicKey)
	keyring, err := chain.NewKeyring(big.NewInt(11155111), []string{hex.EncodeToString(crypto.FromECDSA(key))})
	if err != nil {
		t.Fatal(err)
	}

	contract := common.HexToAddress("0xAAAA000000000000000000000000000000000001")
	contractHex := contract.Hex()
	jobID := uuid.New()

	ledger := &fakeLedger{
		snap: &escrow.Job{
			Contract:        contract,
			Client:          clientWallet,
			Status:          status,
			JobID:           jobID.String(),
			Title:           "Build a landing page",
			Amount:          big.NewInt(0),
			PlatformFee:     big.NewInt(0),
			ApprovalTimeout: 86400,
		},
		created: contract,
	}

	jobs := &fakeJobs{
		job: &models.Job{
			ID:            jobID,
			ClientUserID:  uuid.New(),
			Title:         "Build a landing page",
			Status:        models.JobStatusOpen,
			EscrowAddress: &contractHex,
		},
	}

	audit := &fakeAudit{}
	pub := &fakePublisher{}
	cfg := &config.Config{PlatformFeePercent: 5, USDPerETHEstimate: 3000}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Unix()
	svc := NewEscrowService(ledger, keyring, jobs, audit, pub, cfg, zap.NewNop())
	svc.now = func() time.Time { return time.Unix(now, 0) }

	return &fixture{
		svc:    svc,
		ledger: ledger,
		jobs:   jobs,
		audit:  audit,
		pub:    pub,
		client: Actor{UserID: jobs.job.ClientUserID, Role: models.RoleClient, Wallet: clientWallet},
		now:    now,
	}
}

// --- tests ---

func TestFundDepositsSalaryPlusFee(t *testing.T) {
	f := newFixture(t, escrow.StatusCreated)

	res, err := f.svc.FundJob(context.Background(), f.jobs.job.ID, f.client, "1")
	if err != nil {
		t.Fatal(err)
	}

	// 1 ETH salary + 5% fee = 1.05 ETH deposited
	want, _ := chain.ParseEther("1.05")
	found := false
	for _, w := range f.ledger.writes {
		if w == "fund:"+want.String() {
			found = true
		}
	}
	if !found {
		t.Errorf("fund value not 1.05 ETH in wei, writes: %v", f.ledger.writes)
	}
	if res.Job.Status != escrow.StatusFunded {
		t.Errorf("post-fund status = %s, want Funded", res.Job.Status)
	}
	if res.MirrorWarning != nil {
		t.Errorf("unexpected mirror warning: %v", res.MirrorWarning)
	}
	if len(f.audit.entries) == 0 {
		t.Error("no audit entry written")
	}
}

func TestFundDeploysContractWhenMissing(t *testing.T) {
	f := newFixture(t, escrow.StatusCreated)
	f.jobs.job.EscrowAddress = nil

	if _, err := f.svc.FundJob(context.Background(), f.jobs.job.ID, f.client, "0.5"); err != nil {
		t.Fatal(err)
	}

	if f.ledger.writes[0] != "createJob" {
		t.Errorf("first write = %s, want createJob", f.ledger.writes[0])
	}
}

func TestGuardRejectionSendsNoTransaction(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	f.ledger.snap.Freelancer = common.HexToAddress("0xBBBB000000000000000000000000000000000002")
	f.ledger.snap.WorkSubmittedAt = f.now - 3600 // submitted 1h ago, window is 24h

	freelancer := Actor{
		UserID: uuid.New(),
		Role:   models.RoleFreelancer,
		Wallet: f.ledger.snap.Freelancer,
	}
	_, err := f.svc.Perform(context.Background(), f.jobs.job.ID, freelancer, escrow.ActionDispute)

	var gv *escrow.GuardViolation
	if !errors.As(err, &gv) {
		t.Fatalf("err = %v, want GuardViolation", err)
	}
	if len(f.ledger.writes) != 0 {
		t.Errorf("guard rejection still sent transactions: %v", f.ledger.writes)
	}
	if len(f.audit.entries) != 0 {
		t.Errorf("rejected action was audited as performed")
	}
}

func TestDisputeAllowedAfterDeadline(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	wallet := common.HexToAddress("0xBBBB000000000000000000000000000000000002")
	f.ledger.snap.Freelancer = wallet
	f.ledger.snap.WorkSubmittedAt = f.now - 86400 // exactly at the deadline

	// the freelancer wallet has no custodial key here
	freelancer := Actor{UserID: uuid.New(), Role: models.RoleFreelancer, Wallet: wallet}
	_, err := f.svc.Perform(context.Background(), f.jobs.job.ID, freelancer, escrow.ActionDispute)

	// Guard passes; failure is only the missing signer.
	var ce *escrow.ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConnectivityError for missing signer", err)
	}
}

func TestChainRevertSurfacesToCaller(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	f.ledger.snap.WorkSubmittedAt = f.now - 100
	f.ledger.writeErr = escrow.NewChainRevert(escrow.RevertInvalidStatus)

	_, err := f.svc.Perform(context.Background(), f.jobs.job.ID, f.client, escrow.ActionApprove)

	var cr *escrow.ChainRevert
	if !errors.As(err, &cr) {
		t.Fatalf("err = %v, want ChainRevert", err)
	}
	if !cr.Known {
		t.Error("revert reason should classify as known")
	}
	if len(f.audit.entries) != 0 {
		t.Error("reverted action was audited as performed")
	}
}

func TestMirrorFailureIsWarningNotFailure(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	f.ledger.snap.WorkSubmittedAt = f.now - 100
	f.jobs.mirrorErr = errors.New("db gone")

	res, err := f.svc.Perform(context.Background(), f.jobs.job.ID, f.client, escrow.ActionApprove)
	if err != nil {
		t.Fatalf("confirmed chain write reported as failure: %v", err)
	}

	var ms *escrow.MirrorSyncError
	if !errors.As(res.MirrorWarning, &ms) {
		t.Fatalf("mirror warning = %v, want MirrorSyncError", res.MirrorWarning)
	}
	if res.Job.Status != escrow.StatusCompleted {
		t.Errorf("status = %s, want Completed", res.Job.Status)
	}
	// exactly one mirror attempt, no retry loop
	if len(f.ledger.writes) != 1 {
		t.Errorf("writes = %v, want a single approveWork", f.ledger.writes)
	}
}

func TestMissingSignerIsConnectivityError(t *testing.T) {
	f := newFixture(t, escrow.StatusCreated)
	stranger := Actor{
		UserID: f.client.UserID,
		Role:   models.RoleClient,
		Wallet: f.client.Wallet,
	}
	// same role and wallet on the guard side, but the keyring holds no key
	// for this other wallet
	stranger.Wallet = common.HexToAddress("0xCCCC000000000000000000000000000000000003")
	f.ledger.snap.Client = stranger.Wallet

	_, err := f.svc.FundJob(context.Background(), f.jobs.job.ID, stranger, "1")

	var ce *escrow.ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConnectivityError", err)
	}
	if len(f.ledger.writes) != 0 {
		t.Errorf("missing signer still sent transactions: %v", f.ledger.writes)
	}
}

func TestCancelBlockedAfterAssignment(t *testing.T) {
	f := newFixture(t, escrow.StatusCreated)
	f.ledger.snap.Freelancer = common.HexToAddress("0xBBBB000000000000000000000000000000000002")

	_, err := f.svc.Perform(context.Background(), f.jobs.job.ID, f.client, escrow.ActionCancel)

	var gv *escrow.GuardViolation
	if !errors.As(err, &gv) {
		t.Fatalf("err = %v, want GuardViolation", err)
	}
}

func TestAssignUsesAcceptedApplicationWallet(t *testing.T) {
	f := newFixture(t, escrow.StatusFunded)
	wallet := common.HexToAddress("0xBBBB000000000000000000000000000000000002")
	f.jobs.accepted = &models.JobApplication{
		JobID:         f.jobs.job.ID,
		WalletAddress: wallet.Hex(),
		Status:        models.ApplicationStatusAccepted,
	}

	res, err := f.svc.AssignFreelancer(context.Background(), f.jobs.job.ID, f.client)
	if err != nil {
		t.Fatal(err)
	}
	if res.Job.Freelancer != wallet {
		t.Errorf("assigned %s, want %s", res.Job.Freelancer.Hex(), wallet.Hex())
	}
	if res.Job.Status != escrow.StatusInProgress {
		t.Errorf("status = %s, want In Progress", res.Job.Status)
	}
}

func TestAssignWithoutAcceptedApplicationFails(t *testing.T) {
	f := newFixture(t, escrow.StatusFunded)
	if _, err := f.svc.AssignFreelancer(context.Background(), f.jobs.job.ID, f.client); err == nil {
		t.Fatal("expected error with no accepted application")
	}
	if len(f.ledger.writes) != 0 {
		t.Errorf("assign without applicant still wrote: %v", f.ledger.writes)
	}
}

func TestStatusEventPublished(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	f.ledger.snap.WorkSubmittedAt = f.now - 100

	if _, err := f.svc.Perform(context.Background(), f.jobs.job.ID, f.client, escrow.ActionApprove); err != nil {
		t.Fatal(err)
	}

	if len(f.pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(f.pub.published))
	}
	ev := f.pub.published[0]
	if ev.Type != events.EventEscrowStatusChanged {
		t.Errorf("event type = %s", ev.Type)
	}
	if ev.Payload["new_status"] != "Completed" {
		t.Errorf("new_status = %v, want Completed", ev.Payload["new_status"])
	}
}

func TestMirrorRecordsDepositWithoutAddingFee(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	f.ledger.snap.WorkSubmittedAt = f.now - 100

	// The contract's amount already contains the fee: 1.05 deposited splits
	// into a 0.05 fee and a 1.0 freelancer cut.
	f.ledger.snap.Amount, _ = chain.ParseEther("1.05")
	f.ledger.snap.PlatformFee, _ = chain.ParseEther("0.05")
	f.ledger.snap.FreelancerAmount, _ = chain.ParseEther("1")

	if _, err := f.svc.Perform(context.Background(), f.jobs.job.ID, f.client, escrow.ActionApprove); err != nil {
		t.Fatal(err)
	}

	if len(f.jobs.mirrors) == 0 {
		t.Fatal("no mirror update written")
	}
	m := f.jobs.mirrors[len(f.jobs.mirrors)-1]
	if m.FundedAmountETH == nil {
		t.Fatal("mirror missing funded amount")
	}
	if *m.FundedAmountETH != "1.05" {
		t.Errorf("mirrored funded amount = %s, want 1.05 (the full on-chain deposit)", *m.FundedAmountETH)
	}
}

func TestFundRejectsNonPositiveSalary(t *testing.T) {
	f := newFixture(t, escrow.StatusCreated)
	f.jobs.job.EscrowAddress = nil // even contract creation must not happen

	_, err := f.svc.FundJob(context.Background(), f.jobs.job.ID, f.client, "0")

	var gv *escrow.GuardViolation
	if !errors.As(err, &gv) {
		t.Fatalf("err = %v, want GuardViolation", err)
	}
	if len(f.ledger.writes) != 0 {
		t.Errorf("zero-value fund still reached the ledger: %v", f.ledger.writes)
	}
	if len(f.audit.entries) != 0 {
		t.Error("rejected fund was audited as performed")
	}
}

func TestActionResultWindowUsesServiceClock(t *testing.T) {
	f := newFixture(t, escrow.StatusSubmitted)
	f.ledger.snap.WorkSubmittedAt = f.now - 86400 // deadline is exactly now

	res, err := f.svc.Perform(context.Background(), f.jobs.job.ID, f.client, escrow.ActionApprove)
	if err != nil {
		t.Fatal(err)
	}

	if !res.Window.CanDispute {
		t.Error("window should be open at the deadline")
	}
	if res.Window.CanDisputeAt != f.now {
		t.Errorf("can_dispute_at = %d, want %d (fixture clock)", res.Window.CanDisputeAt, f.now)
	}
	if res.Window.TimeRemaining != 0 {
		t.Errorf("time remaining = %d, want 0", res.Window.TimeRemaining)
	}
}

func TestEstimateFunding(t *testing.T) {
	f := newFixture(t, escrow.StatusCreated)

	total, usd, err := f.svc.EstimateFunding("1")
	if err != nil {
		t.Fatal(err)
	}
	if total != "1.0500" {
		t.Errorf("total = %s, want 1.0500", total)
	}
	if usd != "3150.00" {
		t.Errorf("usd = %s, want 3150.00", usd)
	}
}
