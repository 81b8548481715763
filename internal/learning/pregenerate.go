package learning

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/user"
)

// JobPublisher enqueues background main-path generation.
type JobPublisher interface {
	PublishMainPathGenerate(ctx context.Context, userID string) error
}

// Pregenerator schedules main-path generation once a profile is complete, so
// the first GET finds a stored path.
type Pregenerator struct {
	store     Store
	publisher JobPublisher
	enabled   func(ctx context.Context) bool
	logger    zerolog.Logger
	timeout   time.Duration
}

// NewPregenerator creates a Pregenerator. enabled is consulted on every call.
func NewPregenerator(store Store, publisher JobPublisher, enabled func(ctx context.Context) bool, logger zerolog.Logger) *Pregenerator {
	return &Pregenerator{
		store:     store,
		publisher: publisher,
		enabled:   enabled,
		logger:    logger.With().Str("component", "pregenerator").Logger(),
		timeout:   10 * time.Second,
	}
}

// ProfileCompleted publishes a job when the user has no main path yet. The
// work runs in the background and outlives the request.
func (p *Pregenerator) ProfileCompleted(ctx context.Context, u *user.User) {
	if p.enabled != nil && !p.enabled(ctx) {
		return
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	go func() {
		defer cancel()
		if err := p.schedule(bg, u.ID); err != nil {
			p.logger.Warn().Err(err).Str("user_id", u.ID).Msg("main path pre-generation not scheduled")
		}
	}()
}

func (p *Pregenerator) schedule(ctx context.Context, userID string) error {
	doc, err := p.store.Document(ctx, userID)
	if err != nil {
		return err
	}
	if doc.HasMainPath() {
		return nil
	}
	if err := p.publisher.PublishMainPathGenerate(ctx, userID); err != nil {
		return err
	}
	p.logger.Debug().Str("user_id", userID).Msg("main path pre-generation scheduled")
	return nil
}
