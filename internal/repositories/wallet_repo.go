package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobmate/backend/internal/models"
)

var ErrNonceNotFound = errors.New("nonce not found, expired, or already used")

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// CreateNonce issues a fresh login challenge for the wallet to sign.
func (r *WalletRepo) CreateNonce(ctx context.Context, nonce string, ttl time.Duration) (*models.WalletNonce, error) {
	var n models.WalletNonce
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallet_nonces (nonce, expires_at)
		VALUES ($1, now() + $2)
		RETURNING id, nonce, created_at, expires_at, used
	`, nonce, ttl).Scan(&n.ID, &n.Nonce, &n.CreatedAt, &n.ExpiresAt, &n.Used)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ConsumeNonce marks the challenge used, atomically. A second consume of the
// same nonce fails, so a captured signature cannot be replayed.
func (r *WalletRepo) ConsumeNonce(ctx context.Context, nonce string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE wallet_nonces SET used = true
		WHERE nonce = $1 AND used = false AND expires_at > now()
	`, nonce)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNonceNotFound
	}
	return nil
}

// PurgeExpired deletes stale challenges. Called periodically by the API binary.
func (r *WalletRepo) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM wallet_nonces WHERE expires_at < now() - interval '1 hour'
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
