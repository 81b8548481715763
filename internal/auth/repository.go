package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// RefreshTokenRepository stores refresh tokens. Implementations key tokens
// by tokenDigest so the raw value is never persisted.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	// Consume revokes an active token and returns it in one step, so a token
	// can be rotated at most once. Unknown and revoked tokens return
	// ErrInvalidRefreshToken.
	Consume(ctx context.Context, token string) (*RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// InMemoryRefreshTokenRepository keeps refresh tokens in process, for tests
// and local runs without Postgres.
type InMemoryRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

// NewInMemoryRefreshTokenRepository creates an empty repository.
func NewInMemoryRefreshTokenRepository() *InMemoryRefreshTokenRepository {
	return &InMemoryRefreshTokenRepository{tokens: make(map[string]RefreshToken)}
}

func (r *InMemoryRefreshTokenRepository) Create(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *token
	stored.Token = ""
	r.tokens[tokenDigest(token.Token)] = stored
	return nil
}

func (r *InMemoryRefreshTokenRepository) Consume(_ context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenDigest(token)
	stored, ok := r.tokens[key]
	if !ok || stored.RevokedAt != nil {
		return nil, ErrInvalidRefreshToken
	}
	now := time.Now()
	stored.RevokedAt = &now
	r.tokens[key] = stored

	stored.Token = token
	return &stored, nil
}

func (r *InMemoryRefreshTokenRepository) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenDigest(token)
	if stored, ok := r.tokens[key]; ok && stored.RevokedAt == nil {
		now := time.Now()
		stored.RevokedAt = &now
		r.tokens[key] = stored
	}
	return nil
}

func (r *InMemoryRefreshTokenRepository) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, stored := range r.tokens {
		if stored.UserID == userID && stored.RevokedAt == nil {
			stored.RevokedAt = &now
			r.tokens[key] = stored
		}
	}
	return nil
}
