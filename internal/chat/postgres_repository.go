package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores chats in the chats table with messages as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL chat repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectChat = `SELECT id, user_id, title, messages, created_at, updated_at FROM chats`

func scanChat(row pgx.Row) (*Chat, error) {
	var (
		c   Chat
		raw []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &raw, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &c.Messages); err != nil {
		return nil, fmt.Errorf("decoding messages of chat %s: %w", c.ID, err)
	}
	return &c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *Chat) error {
	msgs, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO chats (id, user_id, title, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Title, msgs, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, chatID string) (*Chat, error) {
	c, err := scanChat(r.pool.QueryRow(ctx, selectChat+` WHERE id = $1 AND user_id = $2`, chatID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *Chat) error {
	msgs, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE chats SET title = $3, messages = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.Title, msgs, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*Chat, error) {
	rows, err := r.pool.Query(ctx, selectChat+` WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	defer rows.Close()

	out := make([]*Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, chatID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
