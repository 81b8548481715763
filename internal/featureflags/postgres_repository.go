package featureflags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores overrides in feature_flags, one JSONB value per
// key.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM feature_flags ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying feature flags: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Flag, error) {
		var (
			f   Flag
			raw []byte
		)
		if err := row.Scan(&f.Key, &raw, &f.UpdatedAt); err != nil {
			return f, err
		}
		if err := json.Unmarshal(raw, &f.Value); err != nil {
			return f, fmt.Errorf("decoding flag %s: %w", f.Key, err)
		}
		return f, nil
	})
}

// Upsert writes every flag in one round trip; the batch runs in an implicit
// transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, flags []Flag) error {
	batch := &pgx.Batch{}
	for _, f := range flags {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encoding flag %s: %w", f.Key, err)
		}
		batch.Queue(`
			INSERT INTO feature_flags (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			f.Key, raw, f.UpdatedAt)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting feature flags: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting flag %s: %w", key, err)
	}
	return nil
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*InMemoryRepository)(nil)
)
