package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobmate/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertByWallet creates the user on first login and refreshes last_active_at
// on every subsequent one. The wallet address is the identity.
func (r *UserRepo) UpsertByWallet(ctx context.Context, walletAddress, role string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (wallet_address, role)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET last_active_at = now()
		RETURNING id, role, display_name, wallet_address, created_at, last_active_at
	`, walletAddress, role).
		Scan(&u.ID, &u.Role, &u.DisplayName, &u.WalletAddress, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, role, display_name, wallet_address, created_at, last_active_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Role, &u.DisplayName, &u.WalletAddress, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, role, display_name, wallet_address, created_at, last_active_at
		FROM users WHERE wallet_address = $1
	`, walletAddress).Scan(&u.ID, &u.Role, &u.DisplayName, &u.WalletAddress, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET display_name = $1 WHERE id = $2
	`, name, id)
	return err
}
