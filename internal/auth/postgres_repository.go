package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRefreshTokenRepository stores refresh tokens in refresh_tokens,
// keyed by SHA-256 digest.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenRepository creates a PostgresRefreshTokenRepository.
func NewPostgresRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		token.ID, tokenDigest(token.Token), token.UserID, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}
	return nil
}

// Consume relies on the row lock taken by UPDATE: of two concurrent
// rotations only one sees revoked_at IS NULL.
func (r *PostgresRefreshTokenRepository) Consume(ctx context.Context, token string) (*RefreshToken, error) {
	t := RefreshToken{Token: token}
	err := r.pool.QueryRow(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
		RETURNING id, user_id, expires_at, created_at, revoked_at`, tokenDigest(token),
	).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.CreatedAt, &t.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("consuming refresh token: %w", err)
	}
	return &t, nil
}

func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL`, tokenDigest(token)); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID); err != nil {
		return fmt.Errorf("revoking refresh tokens for %s: %w", userID, err)
	}
	return nil
}

var (
	_ RefreshTokenRepository = (*PostgresRefreshTokenRepository)(nil)
	_ RefreshTokenRepository = (*InMemoryRefreshTokenRepository)(nil)
)
