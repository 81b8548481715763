// Package worker consumes background jobs published by the API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/events"
	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
	"github.com/hitchpath/hitchpath/internal/user"
)

// MainPathGenerator builds and stores a user's main path.
type MainPathGenerator interface {
	GetMainPath(ctx context.Context, userID string) ([]learning.Step, error)
}

// Processor runs decoded jobs. It is independent of the transport so it can
// be exercised without a Pub/Sub emulator.
type Processor struct {
	paths    MainPathGenerator
	registry *resilience.Registry
	logger   zerolog.Logger
}

// NewProcessor creates a job processor. registry may be nil.
func NewProcessor(paths MainPathGenerator, registry *resilience.Registry, logger zerolog.Logger) *Processor {
	return &Processor{paths: paths, registry: registry, logger: logger}
}

// Process handles one message body and reports whether it should be acked.
// Malformed, unknown and permanently failing jobs are acked so they are not
// redelivered forever.
func (p *Processor) Process(ctx context.Context, data []byte) (ack bool, err error) {
	job, err := events.Decode(data)
	if err != nil {
		return true, err
	}

	switch job.JobType {
	case events.JobMainPathGenerate:
		err = p.generateMainPath(ctx, job.UserID)
		if errors.Is(err, user.ErrUserNotFound) {
			return true, err
		}
	case events.JobHealthCheck:
		err = p.healthCheck()
	default:
		return true, fmt.Errorf("unknown job type %q", job.JobType)
	}
	return err == nil, err
}

func (p *Processor) generateMainPath(ctx context.Context, userID string) error {
	steps, err := p.paths.GetMainPath(ctx, userID)
	if err != nil {
		return fmt.Errorf("generating main path for %s: %w", userID, err)
	}
	p.logger.Info().Str("user_id", userID).Int("steps", len(steps)).Msg("main path ready")
	return nil
}

func (p *Processor) healthCheck() error {
	if p.registry == nil {
		return nil
	}
	if open := p.registry.OpenCircuits(); len(open) > 0 {
		return fmt.Errorf("circuit open for %v", open)
	}
	return nil
}

// PubSubHandler receives job messages from a subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	// Generation can take a while; keep few messages in flight.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start blocks processing messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	start := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("job_type", msg.Attributes["job_type"]).
		Logger()

	ack, err := h.processor.Process(ctx, msg.Data)
	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(start)).Msg("job completed")
	case ack:
		logger.Warn().Err(err).Msg("dropping job")
	default:
		logger.Error().Err(err).Msg("job failed, will retry")
	}

	if ack {
		msg.Ack()
	} else {
		msg.Nack()
	}
}
