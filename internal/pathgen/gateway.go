// Package pathgen turns user preferences or a topic into a validated
// learning path by prompting a text-completion oracle.
package pathgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/user"
)

const (
	kindPreferences = "preferences"
	kindTopic       = "topic"
)

// Flags reports runtime toggles that affect generation.
type Flags interface {
	StructuredGeneration(ctx context.Context) bool
}

// Config configures a Gateway.
type Config struct {
	Oracle   llm.Completer
	Flags    Flags
	Recorder Recorder
	Logger   zerolog.Logger
}

// Gateway generates learning paths. It holds no state between calls.
type Gateway struct {
	oracle   llm.Completer
	flags    Flags
	recorder Recorder
	validate *validator.Validate
	logger   zerolog.Logger
}

var _ learning.Generator = (*Gateway)(nil)

// New creates a Gateway.
func New(cfg Config) *Gateway {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Gateway{
		oracle:   cfg.Oracle,
		flags:    cfg.Flags,
		recorder: recorder,
		validate: newValidator(),
		logger:   cfg.Logger.With().Str("component", "pathgen").Logger(),
	}
}

// GenerateFromPreferences builds a main path from the user's preferences.
func (g *Gateway) GenerateFromPreferences(ctx context.Context, prefs user.Preferences) ([]learning.Step, error) {
	prompt, err := renderPreferences(prefs)
	if err != nil {
		return nil, fmt.Errorf("rendering preferences prompt: %w", err)
	}
	return g.generate(ctx, kindPreferences, prompt)
}

// GenerateForTopic builds a path for a single topic.
func (g *Gateway) GenerateForTopic(ctx context.Context, topic, details string) ([]learning.Step, error) {
	prompt, err := renderTopic(topic, details)
	if err != nil {
		return nil, fmt.Errorf("rendering topic prompt: %w", err)
	}
	return g.generate(ctx, kindTopic, prompt)
}

func (g *Gateway) generate(ctx context.Context, kind, prompt string) (steps []learning.Step, err error) {
	start := time.Now()
	defer func() {
		g.recorder.RecordGeneration(kind, time.Since(start), len(steps), err)
	}()

	req := llm.UserPrompt(prompt)
	req.JSON = g.structured(ctx)

	reply, err := g.oracle.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		g.logger.Warn().Err(err).Str("kind", kind).Msg("oracle call failed")
		return nil, &GenerationError{Reason: ReasonOracleUnavailable, Err: err}
	}

	steps, err = extractSteps(g.validate, reply)
	if err != nil {
		g.logger.Warn().Err(err).Str("kind", kind).Int("reply_bytes", len(reply)).Msg("unusable oracle reply")
		g.logger.Debug().Str("kind", kind).Str("reply", reply).Msg("raw oracle reply")
		return nil, err
	}

	g.logger.Debug().Str("kind", kind).Int("steps", len(steps)).Dur("duration", time.Since(start)).Msg("path generated")
	return steps, nil
}

func (g *Gateway) structured(ctx context.Context) bool {
	if g.flags == nil {
		return true
	}
	return g.flags.StructuredGeneration(ctx)
}
