package user

import (
	"context"
	"errors"
	"sync"
)

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
)

// Repository persists users.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleSub(ctx context.Context, sub string) (*User, error)

	// Create inserts a user. Returns ErrEmailTaken when the email exists.
	Create(ctx context.Context, u *User) error

	// UpdateProfile stores the name and preferences of u.
	UpdateProfile(ctx context.Context, u *User) error

	// LinkGoogle attaches a Google subject to an existing account.
	LinkGoogle(ctx context.Context, id, sub string) error
}

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]*User
	byEmail  map[string]string
	byGoogle map[string]string
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		byGoogle: make(map[string]string),
	}
}

// Get retrieves a user by id.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.clone(), nil
}

// FindByEmail retrieves a user by normalized email.
func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.Get(ctx, id)
}

// FindByGoogleSub retrieves a user by Google subject.
func (r *InMemoryRepository) FindByGoogleSub(ctx context.Context, sub string) (*User, error) {
	r.mu.RLock()
	id, ok := r.byGoogle[sub]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.Get(ctx, id)
}

// Create inserts a user.
func (r *InMemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrEmailTaken
	}
	c := u.clone()
	c.Email = email
	r.users[u.ID] = c
	r.byEmail[email] = u.ID
	if u.GoogleSub != nil {
		r.byGoogle[*u.GoogleSub] = u.ID
	}
	return nil
}

// UpdateProfile stores name and preferences.
func (r *InMemoryRepository) UpdateProfile(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	existing.Name = u.Name
	existing.Preferences = u.Preferences
	existing.UpdatedAt = u.UpdatedAt
	return nil
}

// LinkGoogle attaches a Google subject to an account.
func (r *InMemoryRepository) LinkGoogle(_ context.Context, id, sub string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	existing.GoogleSub = &sub
	r.byGoogle[sub] = id
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
