package featureflags

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration
}

// Service answers flag lookups from a cached snapshot of the repository,
// merged over the defaults. The snapshot is reloaded once it is older than
// the TTL or after any write.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	ttl    time.Duration
	loads  singleflight.Group

	mu       sync.RWMutex
	snapshot map[string]Flag
	loadedAt time.Time
	gen      uint64 // bumped on invalidation; stale loads are not kept
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{repo: cfg.Repository, logger: cfg.Logger, ttl: ttl}
}

// Flag returns the current value of key. Unknown keys report false.
func (s *Service) Flag(ctx context.Context, key string) (Flag, bool) {
	f, ok := s.flags(ctx)[key]
	return f, ok
}

// All returns every known flag ordered by key.
func (s *Service) All(ctx context.Context) []Flag {
	snap := s.flags(ctx)
	out := make([]Flag, 0, len(snap))
	for _, key := range slices.Sorted(maps.Keys(snap)) {
		out = append(out, snap[key])
	}
	return out
}

// Set stores overrides for flags. Either all of them are written or, when a
// key is unknown, none are.
func (s *Service) Set(ctx context.Context, flags []Flag) error {
	now := time.Now().UTC()
	for i := range flags {
		if !IsKnown(flags[i].Key) {
			return fmt.Errorf("%w: %s", ErrUnknownFlag, flags[i].Key)
		}
		flags[i].UpdatedAt = now
	}
	if err := s.repo.Upsert(ctx, flags); err != nil {
		return fmt.Errorf("storing feature flags: %w", err)
	}
	s.InvalidateCache()
	return nil
}

// Reset drops the override for key so it reverts to its default.
func (s *Service) Reset(ctx context.Context, key string) error {
	if !IsKnown(key) {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("resetting feature flag: %w", err)
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache forces the next lookup to reload from the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.snapshot = nil
	s.gen++
	s.mu.Unlock()
}

// IsEnabled reports whether a boolean flag is on. A nil service means every
// flag is at its default.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	if s == nil {
		return defaults[key]
	}
	f, ok := s.Flag(ctx, key)
	return ok && f.Bool(defaults[key])
}

func (s *Service) flags(ctx context.Context) map[string]Flag {
	s.mu.RLock()
	snap, fresh := s.snapshot, time.Since(s.loadedAt) < s.ttl
	s.mu.RUnlock()
	if snap != nil && fresh {
		return snap
	}

	v, _, _ := s.loads.Do("flags", func() (any, error) {
		return s.load(ctx), nil
	})
	return v.(map[string]Flag)
}

// load merges stored overrides over the defaults. A repository failure
// serves defaults without caching them, so the next lookup retries.
func (s *Service) load(ctx context.Context) map[string]Flag {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	merged := make(map[string]Flag, len(defaults))
	for _, f := range Defaults() {
		merged[f.Key] = f
	}

	stored, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("loading feature flags failed, serving defaults")
		return merged
	}
	for _, f := range stored {
		if IsKnown(f.Key) {
			merged[f.Key] = f
		}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.snapshot, s.loadedAt = merged, time.Now()
	}
	s.mu.Unlock()
	return merged
}

// StructuredGeneration reports whether path generation requests JSON mode.
func (s *Service) StructuredGeneration(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagStructuredGeneration)
}

// PregenerateMainPath reports whether profile completion schedules a job.
func (s *Service) PregenerateMainPath(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagPregenerateMainPath)
}

// ChatbotDisabled reports whether the chatbot is switched off.
func (s *Service) ChatbotDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableChatbot)
}

// ResumeAIDisabled reports whether AI resume rewriting is switched off.
func (s *Service) ResumeAIDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableResumeAI)
}
