package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository keeps the resume body as one JSONB document keyed by user.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL resume repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (p *PostgresRepository) Get(ctx context.Context, userID string) (*Resume, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT document FROM resumes WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResumeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying resume: %w", err)
	}

	var r Resume
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding resume: %w", err)
	}
	r.UserID = userID
	r.normalize()
	return &r, nil
}

func (p *PostgresRepository) Upsert(ctx context.Context, r *Resume) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding resume: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO resumes (user_id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		r.UserID, doc, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting resume: %w", err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
