package user

import (
	"context"
	"fmt"
	"time"
)

// ProfileCompletedFunc is invoked after an update leaves a profile complete.
type ProfileCompletedFunc func(ctx context.Context, u *User)

// Service provides profile operations.
type Service struct {
	repo      Repository
	completed ProfileCompletedFunc
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OnProfileCompleted registers fn to run after profile updates that leave the
// profile complete. It must not block.
func (s *Service) OnProfileCompleted(fn ProfileCompletedFunc) {
	s.completed = fn
}

// Get retrieves a user.
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.Get(ctx, userID)
}

// UpdateProfile applies a partial update to the user's name and preferences.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	update.Apply(u)
	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}

	if s.completed != nil && u.ProfileComplete() {
		s.completed(ctx, u)
	}
	return u, nil
}

// ProfileComplete reports whether the user filled in what generation needs.
func (s *Service) ProfileComplete(ctx context.Context, userID string) (bool, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.ProfileComplete(), nil
}
