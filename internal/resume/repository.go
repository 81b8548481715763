package resume

import (
	"context"
	"errors"
	"sync"
)

// ErrResumeNotFound is returned when the user has not saved a resume.
var ErrResumeNotFound = errors.New("resume not found")

// Repository stores at most one resume per user.
type Repository interface {
	Get(ctx context.Context, userID string) (*Resume, error)
	Upsert(ctx context.Context, r *Resume) error
}

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	resumes map[string]*Resume
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{resumes: make(map[string]*Resume)}
}

func (m *InMemoryRepository) Get(_ context.Context, userID string) (*Resume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resumes[userID]
	if !ok {
		return nil, ErrResumeNotFound
	}
	return r.clone(), nil
}

func (m *InMemoryRepository) Upsert(_ context.Context, r *Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes[r.UserID] = r.clone()
	return nil
}
