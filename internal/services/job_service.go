package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/chain"
	"github.com/jobmate/backend/internal/config"
	"github.com/jobmate/backend/internal/events"
	"github.com/jobmate/backend/internal/models"
	"github.com/jobmate/backend/internal/repositories"
)

type JobService struct {
	jobRepo   *repositories.JobRepo
	auditRepo *repositories.AuditRepo
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewJobService(
	jobRepo *repositories.JobRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *JobService {
	return &JobService{
		jobRepo:   jobRepo,
		auditRepo: auditRepo,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

func (s *JobService) Create(ctx context.Context, clientID uuid.UUID, title string, description, category, budgetUSD *string) (*models.Job, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	job := &models.Job{
		ClientUserID: clientID,
		Title:        title,
		Description:  description,
		Category:     category,
		BudgetUSD:    budgetUSD,
		Status:       models.JobStatusOpen,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &clientID,
		ActorType:   "user",
		Action:      "job_created",
		EntityType:  "job",
		EntityID:    &job.ID,
		Meta:        map[string]any{"title": title},
	})

	return job, nil
}

func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *JobService) List(ctx context.Context, f repositories.JobFilter) ([]models.Job, error) {
	return s.jobRepo.List(ctx, f)
}

// SuggestedSalaryETH pre-fills the funding form from the USD budget at the
// configured display rate. Advisory only.
func (s *JobService) SuggestedSalaryETH(job *models.Job) string {
	if job.BudgetUSD == nil {
		return "0"
	}
	var usd float64
	if _, err := fmt.Sscanf(*job.BudgetUSD, "%f", &usd); err != nil {
		return "0"
	}
	return chain.EstimateFromUSD(usd, s.cfg.USDPerETHEstimate)
}

// AuditTrail returns the job's recorded lifecycle actions, visible to the
// job owner only.
func (s *JobService) AuditTrail(ctx context.Context, jobID, callerID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientUserID != callerID {
		return nil, fmt.Errorf("only the job owner can view the audit trail")
	}
	return s.auditRepo.GetByEntity(ctx, "job", jobID, limit, offset)
}

// Apply records a freelancer's application, capturing the wallet the client
// will later bind on-chain at assignment.
func (s *JobService) Apply(ctx context.Context, jobID, freelancerID uuid.UUID, walletAddress string, coverLetter *string) (*models.JobApplication, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, fmt.Errorf("job is not open for applications")
	}
	if job.ClientUserID == freelancerID {
		return nil, fmt.Errorf("cannot apply to your own job")
	}

	wallet, err := chain.ParseAddress(walletAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	app := &models.JobApplication{
		JobID:            jobID,
		FreelancerUserID: freelancerID,
		WalletAddress:    wallet.Hex(),
		CoverLetter:      coverLetter,
		Status:           models.ApplicationStatusApplied,
	}
	if err := s.jobRepo.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventApplicationReceived,
		Payload: map[string]any{
			"job_id":         jobID.String(),
			"application_id": app.ID.String(),
		},
	})

	return app, nil
}

func (s *JobService) Applications(ctx context.Context, jobID, callerID uuid.UUID) ([]models.JobApplication, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientUserID != callerID {
		return nil, fmt.Errorf("only the job owner can list applications")
	}
	return s.jobRepo.ListApplications(ctx, jobID)
}

// AcceptApplication marks one application accepted and the rest rejected.
// The on-chain assignment happens separately through the escrow service.
func (s *JobService) AcceptApplication(ctx context.Context, appID, callerID uuid.UUID) (*models.JobApplication, error) {
	app, err := s.jobRepo.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobRepo.GetByID(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if job.ClientUserID != callerID {
		return nil, fmt.Errorf("only the job owner can accept applications")
	}
	if app.Status != models.ApplicationStatusApplied {
		return nil, fmt.Errorf("application is already %s", app.Status)
	}

	others, err := s.jobRepo.ListApplications(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	for _, o := range others {
		if o.ID == app.ID {
			continue
		}
		if o.Status == models.ApplicationStatusApplied {
			if err := s.jobRepo.UpdateApplicationStatus(ctx, o.ID, models.ApplicationStatusRejected); err != nil {
				s.log.Warn("failed to reject competing application",
					zap.String("application_id", o.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	if err := s.jobRepo.UpdateApplicationStatus(ctx, app.ID, models.ApplicationStatusAccepted); err != nil {
		return nil, err
	}
	app.Status = models.ApplicationStatusAccepted

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &callerID,
		ActorType:   "user",
		Action:      "application_accepted",
		EntityType:  "job",
		EntityID:    &app.JobID,
		Meta:        map[string]any{"application_id": app.ID.String()},
	})

	return app, nil
}
