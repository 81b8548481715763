// Package contact stores messages sent through the public contact form.
package contact

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Message is a contact form submission.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	Email     string    `json:"email" validate:"required,email"`
	Message   string    `json:"message" validate:"required,max=5000"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository stores submissions.
type Repository interface {
	Create(ctx context.Context, m *Message) error
}

// Service accepts contact form submissions.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a contact service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "contact").Logger()}
}

// Submit stores m with a fresh id and timestamp.
func (s *Service) Submit(ctx context.Context, m Message) (*Message, error) {
	m.ID = "cnt_" + uuid.New().String()
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.CreatedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, &m); err != nil {
		return nil, fmt.Errorf("saving contact message: %w", err)
	}
	s.logger.Info().Str("contact_id", m.ID).Msg("contact message received")
	return &m, nil
}

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu       sync.Mutex
	messages []Message
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Create(_ context.Context, m *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *m)
	return nil
}

// All returns every stored message in arrival order.
func (r *InMemoryRepository) All() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// PostgresRepository stores submissions in contact_messages.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL contact repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, m *Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contact_messages (id, name, email, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Name, m.Email, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting contact message: %w", err)
	}
	return nil
}
