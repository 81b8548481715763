package learning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hitchpath/hitchpath/internal/lock"
	"github.com/hitchpath/hitchpath/internal/user"
)

// ErrPathNotFound is returned for unknown path ids.
var ErrPathNotFound = errors.New("learning path not found")

// Generator produces learning paths. Implementations must not persist anything.
type Generator interface {
	GenerateFromPreferences(ctx context.Context, prefs user.Preferences) ([]Step, error)
	GenerateForTopic(ctx context.Context, topic, details string) ([]Step, error)
}

// PathServiceConfig wires a PathService.
type PathServiceConfig struct {
	Store     Store
	Users     UserLookup
	Generator Generator

	// Locker serializes main-path generation across instances. Nil means
	// in-process coalescing only.
	Locker lock.Locker
	Logger zerolog.Logger

	// GenerationTimeout bounds a shared main-path generation. It runs
	// detached from any single caller. Defaults to DefaultGenerationTimeout.
	GenerationTimeout time.Duration
}

// DefaultGenerationTimeout applies when PathServiceConfig leaves it unset.
const DefaultGenerationTimeout = 2 * time.Minute

// PathService implements get-or-generate for the main path and
// always-generate for named paths.
type PathService struct {
	store  Store
	users  UserLookup
	gen    Generator
	locker lock.Locker
	logger zerolog.Logger
	group  singleflight.Group
	now    func() time.Time
	genTTL time.Duration
}

// NewPathService creates a path service.
func NewPathService(cfg PathServiceConfig) *PathService {
	locker := cfg.Locker
	if locker == nil {
		locker = lock.Noop{}
	}
	genTTL := cfg.GenerationTimeout
	if genTTL <= 0 {
		genTTL = DefaultGenerationTimeout
	}
	return &PathService{
		store:  cfg.Store,
		users:  cfg.Users,
		gen:    cfg.Generator,
		locker: locker,
		logger: cfg.Logger.With().Str("component", "path_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		genTTL: genTTL,
	}
}

// GetMainPath returns the stored main path, generating it on first use.
// Concurrent first-time calls for one user share a single generation.
func (s *PathService) GetMainPath(ctx context.Context, userID string) ([]Step, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc.HasMainPath() {
		return doc.MainPath.Steps, nil
	}

	// The flight outlives whichever caller started it; each caller only
	// stops waiting on its own cancellation.
	ch := s.group.DoChan(userID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.genTTL)
		defer cancel()
		return s.generateMainPath(fctx, userID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("user_id", userID).Msg("main path generation coalesced")
		}
		// Shared callers get their own copy.
		return cloneSteps(res.Val.([]Step)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *PathService) generateMainPath(ctx context.Context, userID string) ([]Step, error) {
	lease, err := s.locker.Acquire(ctx, "main-path:"+userID)
	if errors.Is(err, lock.ErrNotAcquired) {
		// The holder is most likely done generating by now.
		return s.storedMainPath(ctx, userID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring generation lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("releasing generation lock")
		}
	}()

	// Another instance may have finished while we waited for the lock.
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc.HasMainPath() {
		return doc.MainPath.Steps, nil
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	steps, err := s.gen.GenerateFromPreferences(ctx, u.Preferences)
	if err != nil {
		return nil, err
	}

	stored, created, err := s.store.SetMainPathIfAbsent(ctx, userID, &MainPath{Steps: steps, GeneratedAt: s.now()})
	if err != nil {
		return nil, fmt.Errorf("storing main path: %w", err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Int("steps", len(stored.Steps)).
		Bool("stored", created).
		Dur("duration", time.Since(start)).
		Msg("main path generated")
	return stored.Steps, nil
}

func (s *PathService) storedMainPath(ctx context.Context, userID string, lockErr error) ([]Step, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !doc.HasMainPath() {
		return nil, fmt.Errorf("acquiring generation lock: %w", lockErr)
	}
	s.logger.Debug().Str("user_id", userID).Msg("main path generated by another instance")
	return doc.MainPath.Steps, nil
}

// HasMainPath reports whether a main path is stored for userID, meaning
// GetMainPath will not generate.
func (s *PathService) HasMainPath(ctx context.Context, userID string) (bool, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return false, err
	}
	return doc.HasMainPath(), nil
}

// ResetMainPath removes the main path. Progress sets are left as they are.
func (s *PathService) ResetMainPath(ctx context.Context, userID string) error {
	return s.store.ClearMainPath(ctx, userID)
}

// CreateNamedPath generates a path for topic and appends it.
func (s *PathService) CreateNamedPath(ctx context.Context, userID, topic, details string) (NamedPath, error) {
	if _, err := s.store.Document(ctx, userID); err != nil {
		return NamedPath{}, err
	}

	steps, err := s.gen.GenerateForTopic(ctx, topic, details)
	if err != nil {
		return NamedPath{}, err
	}

	p, err := s.store.AppendNamedPath(ctx, userID, NamedPath{
		ID:        NewPathID(),
		Topic:     topic,
		Details:   details,
		Steps:     steps,
		CreatedAt: s.now(),
	})
	if err != nil {
		return NamedPath{}, fmt.Errorf("storing named path: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("path_id", p.ID).Int("ordinal", p.Ordinal).Msg("named path created")
	return p, nil
}

// ListNamedPaths returns the user's named paths in append order.
func (s *PathService) ListNamedPaths(ctx context.Context, userID string) ([]NamedPath, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc.SpecificPaths == nil {
		return []NamedPath{}, nil
	}
	return doc.SpecificPaths, nil
}

// GetNamedPath returns one named path.
func (s *PathService) GetNamedPath(ctx context.Context, userID, pathID string) (NamedPath, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return NamedPath{}, err
	}
	p, ok := doc.NamedPath(pathID)
	if !ok {
		return NamedPath{}, ErrPathNotFound
	}
	return p, nil
}

// Summary is the server-side progress view of a single path.
type Summary struct {
	PathID          string
	TotalSteps      int
	CompletedSteps  []string
	PercentComplete int
}

// PathProgressSummary filters the user's progress down to the steps of one
// path. A step counts as done when its id is in the flat completed set or in
// the path's own progress entry.
func (s *PathService) PathProgressSummary(ctx context.Context, userID, pathID string) (Summary, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	var steps []Step
	if pathID == MainPathID {
		if !doc.HasMainPath() {
			return Summary{}, ErrPathNotFound
		}
		steps = doc.MainPath.Steps
	} else {
		p, ok := doc.NamedPath(pathID)
		if !ok {
			return Summary{}, ErrPathNotFound
		}
		steps = p.Steps
	}

	scoped := doc.PathProgress[pathID].CompletedSteps
	completed := []string{}
	for _, step := range steps {
		id := step.ID.String()
		if slices.Contains(doc.CompletedStepIDs, id) || slices.Contains(scoped, id) {
			completed = append(completed, id)
		}
	}

	sum := Summary{PathID: pathID, TotalSteps: len(steps), CompletedSteps: completed}
	if len(steps) > 0 {
		sum.PercentComplete = int(math.Round(float64(len(completed)) / float64(len(steps)) * 100))
	}
	return sum, nil
}
