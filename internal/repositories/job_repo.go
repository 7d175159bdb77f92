package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobmate/backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, client_user_id, title, description, category, budget_usd, status,
	escrow_address, blockchain_status, assigned_freelancer_wallet, funded_amount_eth,
	created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*models.Job, error) {
	var j models.Job
	err := row.Scan(
		&j.ID, &j.ClientUserID, &j.Title, &j.Description, &j.Category, &j.BudgetUSD, &j.Status,
		&j.EscrowAddress, &j.BlockchainStatus, &j.AssignedFreelancerWallet, &j.FundedAmountETH,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO jobs (client_user_id, title, description, category, budget_usd, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, j.ClientUserID, j.Title, j.Description, j.Category, j.BudgetUSD, j.Status).
		Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

type JobFilter struct {
	ClientUserID *uuid.UUID
	Status       *string
	Category     *string
	Limit        int
	Offset       int
}

func (r *JobRepo) List(ctx context.Context, f JobFilter) ([]models.Job, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []any{}
	i := 1

	if f.ClientUserID != nil {
		query += fmt.Sprintf(" AND client_user_id = $%d", i)
		args = append(args, *f.ClientUserID)
		i++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", i)
		args = append(args, *f.Status)
		i++
	}
	if f.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", i)
		args = append(args, *f.Category)
		i++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ListMirrored returns jobs with a bound escrow whose mirrored status is not
// terminal — the chain-indexer's working set.
func (r *JobRepo) ListMirrored(ctx context.Context) ([]models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE escrow_address IS NOT NULL
		  AND (blockchain_status IS NULL OR blockchain_status NOT IN ('Completed', 'Refunded'))
		ORDER BY updated_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// MirrorUpdate carries the denormalized on-chain facts written back after a
// confirmed transaction. Nil fields are left untouched.
type MirrorUpdate struct {
	EscrowAddress            *string
	BlockchainStatus         *string
	AssignedFreelancerWallet *string
	FundedAmountETH          *string
}

func (r *JobRepo) UpdateMirror(ctx context.Context, id uuid.UUID, m MirrorUpdate) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET
			escrow_address = COALESCE($1, escrow_address),
			blockchain_status = COALESCE($2, blockchain_status),
			assigned_freelancer_wallet = COALESCE($3, assigned_freelancer_wallet),
			funded_amount_eth = COALESCE($4, funded_amount_eth),
			updated_at = now()
		WHERE id = $5
	`, m.EscrowAddress, m.BlockchainStatus, m.AssignedFreelancerWallet, m.FundedAmountETH, id)
	return err
}

// --- applications ---

func (r *JobRepo) CreateApplication(ctx context.Context, a *models.JobApplication) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO job_applications (job_id, freelancer_user_id, wallet_address, cover_letter, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.JobID, a.FreelancerUserID, a.WalletAddress, a.CoverLetter, a.Status).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *JobRepo) GetApplication(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	var a models.JobApplication
	err := r.pool.QueryRow(ctx, `
		SELECT id, job_id, freelancer_user_id, wallet_address, cover_letter, status, created_at
		FROM job_applications WHERE id = $1
	`, id).Scan(&a.ID, &a.JobID, &a.FreelancerUserID, &a.WalletAddress, &a.CoverLetter, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *JobRepo) ListApplications(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, freelancer_user_id, wallet_address, cover_letter, status, created_at
		FROM job_applications WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.JobApplication
	for rows.Next() {
		var a models.JobApplication
		if err := rows.Scan(&a.ID, &a.JobID, &a.FreelancerUserID, &a.WalletAddress, &a.CoverLetter, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// AcceptedApplication returns the single accepted application for a job, the
// source of the wallet bound on-chain at assignment time.
func (r *JobRepo) AcceptedApplication(ctx context.Context, jobID uuid.UUID) (*models.JobApplication, error) {
	var a models.JobApplication
	err := r.pool.QueryRow(ctx, `
		SELECT id, job_id, freelancer_user_id, wallet_address, cover_letter, status, created_at
		FROM job_applications WHERE job_id = $1 AND status = 'accepted'
		ORDER BY created_at ASC LIMIT 1
	`, jobID).Scan(&a.ID, &a.JobID, &a.FreelancerUserID, &a.WalletAddress, &a.CoverLetter, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *JobRepo) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_applications SET status = $1 WHERE id = $2
	`, status, id)
	return err
}
