// Package events publishes background jobs to Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types understood by the worker.
const (
	JobMainPathGenerate = "main_path_generate"
	JobHealthCheck      = "health_check"
)

// ErrMissingUser is returned for user-scoped jobs without a user id.
var ErrMissingUser = errors.New("job has no user_id")

// Job is the message body shared by the API and the worker.
type Job struct {
	JobType     string    `json:"job_type"`
	UserID      string    `json:"user_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Decode parses a job message.
func Decode(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("decoding job: %w", err)
	}
	if j.JobType == JobMainPathGenerate && j.UserID == "" {
		return Job{}, ErrMissingUser
	}
	return j, nil
}

// sender delivers one encoded message and waits for the server ack.
type sender interface {
	send(ctx context.Context, data []byte, attrs map[string]string) error
	close() error
}

// Publisher publishes jobs.
type Publisher struct {
	out    sender
	logger zerolog.Logger
}

// PubSubConfig configures NewPubSubPublisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// NewPubSubPublisher connects to Pub/Sub and publishes to cfg.Topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &Publisher{
		out:    &pubsubSender{client: client, publisher: client.Publisher(cfg.Topic)},
		logger: cfg.Logger,
	}, nil
}

// PublishMainPathGenerate asks the worker to build the user's main path.
func (p *Publisher) PublishMainPathGenerate(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUser
	}
	return p.publish(ctx, Job{JobType: JobMainPathGenerate, UserID: userID, RequestedAt: time.Now().UTC()})
}

func (p *Publisher) publish(ctx context.Context, j Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	if err := p.out.send(ctx, data, map[string]string{"job_type": j.JobType}); err != nil {
		return fmt.Errorf("publishing %s: %w", j.JobType, err)
	}
	p.logger.Debug().Str("job_type", j.JobType).Str("user_id", j.UserID).Msg("job published")
	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	return p.out.close()
}

type pubsubSender struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

func (s *pubsubSender) send(ctx context.Context, data []byte, attrs map[string]string) error {
	_, err := s.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	return err
}

func (s *pubsubSender) close() error {
	s.publisher.Stop()
	return s.client.Close()
}
