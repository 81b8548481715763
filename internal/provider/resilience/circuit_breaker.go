// Package resilience wraps outbound HTTP calls (the LLM provider, Google's
// key endpoint) with timeouts, a circuit breaker and optional retries.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero disables it.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ReadyToTrip decides when to open. Nil means DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful decides which errors count as failures. Nil means
	// CallerCanceled errors are not held against the dependency.
	IsSuccessful func(err error) bool

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for providers.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens the breaker once at least 5 requests were made and
// half or more of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// CallerCanceled reports whether err came from the caller giving up rather
// than from the dependency.
func CallerCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func notFailure(err error) bool {
	return err == nil || CallerCanceled(err)
}

// LogStateChanges returns an OnStateChange hook writing transitions to logger.
func LogStateChanges(logger zerolog.Logger) func(string, gobreaker.State, gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		ev := logger.Info()
		if to == gobreaker.StateOpen {
			ev = logger.Warn()
		}
		ev.Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker creates a breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}
	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = notFailure
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		IsSuccessful:  isSuccessful,
		OnStateChange: cfg.OnStateChange,
	})
}
