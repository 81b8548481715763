package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrChatNotFound is returned for unknown chats and chats owned by someone else.
var ErrChatNotFound = errors.New("chat not found")

// Repository stores transcripts. Every lookup is scoped to the owner.
type Repository interface {
	Create(ctx context.Context, c *Chat) error
	Get(ctx context.Context, userID, chatID string) (*Chat, error)
	Update(ctx context.Context, c *Chat) error
	List(ctx context.Context, userID string) ([]*Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
}

// InMemoryRepository is a Repository for tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	chats map[string]*Chat
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{chats: make(map[string]*Chat)}
}

func (r *InMemoryRepository) Create(_ context.Context, c *Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[c.ID] = c.clone()
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, userID, chatID string) (*Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, ErrChatNotFound
	}
	return c.clone(), nil
}

func (r *InMemoryRepository) Update(_ context.Context, c *Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.chats[c.ID]
	if !ok || existing.UserID != c.UserID {
		return ErrChatNotFound
	}
	r.chats[c.ID] = c.clone()
	return nil
}

// List returns the user's chats, most recently updated first.
func (r *InMemoryRepository) List(_ context.Context, userID string) ([]*Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Chat, 0)
	for _, c := range r.chats {
		if c.UserID == userID {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, userID, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok || c.UserID != userID {
		return ErrChatNotFound
	}
	delete(r.chats, chatID)
	return nil
}
