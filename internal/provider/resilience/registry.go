package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker exposes a circuit breaker's state. *Client implements it.
type Breaker interface {
	CircuitBreakerState() gobreaker.State
	CircuitBreakerCounts() gobreaker.Counts
}

// Snapshot is a point-in-time view of one tracked dependency.
type Snapshot struct {
	Name        string
	State       gobreaker.State
	Counts      gobreaker.Counts
	LastSuccess time.Time
	LastFailure time.Time
	LastError   string
}

// Open reports whether calls are currently being rejected.
func (s Snapshot) Open() bool { return s.State == gobreaker.StateOpen }

// Probing reports whether the breaker is letting trial calls through.
func (s Snapshot) Probing() bool { return s.State == gobreaker.StateHalfOpen }

// Registry collects the outbound dependencies of a process (the LLM,
// Google token verification) for ops reporting and worker health checks.
type Registry struct {
	mu      sync.RWMutex
	tracked map[string]*tracked
	now     func() time.Time
}

type tracked struct {
	breaker     Breaker
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tracked: make(map[string]*tracked), now: time.Now}
}

// Track starts reporting on b under name. Tracking a name again resets its
// history.
func (r *Registry) Track(name string, b Breaker) {
	r.mu.Lock()
	r.tracked[name] = &tracked{breaker: b}
	r.mu.Unlock()
}

// Observe records the outcome of a call. A nil err counts as a success.
// Unknown names are ignored.
func (r *Registry) Observe(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracked[name]
	if !ok {
		return
	}
	if err == nil {
		t.lastSuccess = r.now()
		return
	}
	t.lastFailure = r.now()
	t.lastError = err.Error()
}

// Snapshot returns the current view of name.
func (r *Registry) Snapshot(name string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tracked[name]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(name), true
}

// Snapshots returns every tracked dependency ordered by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.tracked))
	for name, t := range r.tracked {
		out = append(out, t.snapshot(name))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Snapshot) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// OpenCircuits lists the dependencies whose breaker is open.
func (r *Registry) OpenCircuits() []string {
	var names []string
	for _, s := range r.Snapshots() {
		if s.Open() {
			names = append(names, s.Name)
		}
	}
	return names
}

func (t *tracked) snapshot(name string) Snapshot {
	return Snapshot{
		Name:        name,
		State:       t.breaker.CircuitBreakerState(),
		Counts:      t.breaker.CircuitBreakerCounts(),
		LastSuccess: t.lastSuccess,
		LastFailure: t.lastFailure,
		LastError:   t.lastError,
	}
}
