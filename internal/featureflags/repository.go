package featureflags

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownFlag is returned when writing a key that has no default.
var ErrUnknownFlag = errors.New("unknown feature flag")

// Repository persists flag overrides. Keys without a stored override take
// their default value.
type Repository interface {
	List(ctx context.Context) ([]Flag, error)
	Upsert(ctx context.Context, flags []Flag) error
	Delete(ctx context.Context, key string) error
}

// InMemoryRepository keeps overrides in a map. It backs tests and local runs
// without a database.
type InMemoryRepository struct {
	mu    sync.Mutex
	flags map[string]Flag
}

// NewInMemoryRepository returns a repository holding seed.
func NewInMemoryRepository(seed ...Flag) *InMemoryRepository {
	r := &InMemoryRepository{flags: make(map[string]Flag, len(seed))}
	for _, f := range seed {
		r.flags[f.Key] = f
	}
	return r
}

func (r *InMemoryRepository) List(context.Context) ([]Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Flag, 0, len(r.flags))
	for _, f := range r.flags {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Flag) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func (r *InMemoryRepository) Upsert(_ context.Context, flags []Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range flags {
		r.flags[f.Key] = f
	}
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flags, key)
	return nil
}
