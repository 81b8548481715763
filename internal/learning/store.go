package learning

import (
	"context"
	"slices"
	"sync"

	"github.com/hitchpath/hitchpath/internal/user"
)

// Store persists learning documents. Every mutation is atomic per user;
// implementations return user.ErrUserNotFound for unknown users.
type Store interface {
	Document(ctx context.Context, userID string) (*Document, error)

	// SetMainPathIfAbsent stores p only when the user has no main path. It
	// returns the main path now stored and whether p was the one written.
	SetMainPathIfAbsent(ctx context.Context, userID string, p *MainPath) (*MainPath, bool, error)

	// ClearMainPath removes the main path and nothing else.
	ClearMainPath(ctx context.Context, userID string) error

	// AppendNamedPath appends p, assigning its ordinal.
	AppendNamedPath(ctx context.Context, userID string, p NamedPath) (NamedPath, error)

	// SetStepCompleted adds or removes stepID from the completed set and, when
	// pathID is set, from that path's progress entry (as pathStepID).
	SetStepCompleted(ctx context.Context, userID string, mark StepMark) (Progress, error)

	// SetResourceSaved adds or removes resourceID from the saved set.
	SetResourceSaved(ctx context.Context, userID, resourceID string, saved bool) ([]string, error)
}

// UserLookup resolves users; the memory store uses it to report unknown ids.
type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	users UserLookup
	docs  map[string]*Document
}

// NewMemoryStore creates a memory store. With a nil lookup every user id is
// treated as existing.
func NewMemoryStore(users UserLookup) *MemoryStore {
	return &MemoryStore{users: users, docs: make(map[string]*Document)}
}

// doc returns the live document for userID. Callers hold s.mu.
func (s *MemoryStore) doc(ctx context.Context, userID string) (*Document, error) {
	if d, ok := s.docs[userID]; ok {
		return d, nil
	}
	if s.users != nil {
		if _, err := s.users.Get(ctx, userID); err != nil {
			return nil, err
		}
	}
	d := &Document{PathProgress: map[string]PathProgress{}}
	s.docs[userID] = d
	return d, nil
}

// Document returns a copy of the user's document.
func (s *MemoryStore) Document(ctx context.Context, userID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.clone(), nil
}

// SetMainPathIfAbsent stores p unless a main path exists.
func (s *MemoryStore) SetMainPathIfAbsent(ctx context.Context, userID string, p *MainPath) (*MainPath, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if d.MainPath != nil {
		return d.MainPath.clone(), false, nil
	}
	d.MainPath = p.clone()
	return p.clone(), true, nil
}

// ClearMainPath removes the main path.
func (s *MemoryStore) ClearMainPath(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc(ctx, userID)
	if err != nil {
		return err
	}
	d.MainPath = nil
	return nil
}

// AppendNamedPath appends p with the next ordinal.
func (s *MemoryStore) AppendNamedPath(ctx context.Context, userID string, p NamedPath) (NamedPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc(ctx, userID)
	if err != nil {
		return NamedPath{}, err
	}
	p.Ordinal = len(d.SpecificPaths) + 1
	d.SpecificPaths = append(d.SpecificPaths, p.clone())
	return p, nil
}

// SetStepCompleted toggles a step.
func (s *MemoryStore) SetStepCompleted(ctx context.Context, userID string, mark StepMark) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	id := mark.StepID.String()
	d.CompletedStepIDs = toggle(d.CompletedStepIDs, id, mark.Completed)
	if pp, ok := d.PathProgress[mark.PathID]; mark.PathID != "" && (ok || mark.Completed) {
		pp.CompletedSteps = toggle(pp.CompletedSteps, mark.pathStepID(), mark.Completed)
		d.PathProgress[mark.PathID] = pp
	}
	return d.clone().progress(), nil
}

// SetResourceSaved toggles a bookmark.
func (s *MemoryStore) SetResourceSaved(ctx context.Context, userID, resourceID string, saved bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.SavedResourceIDs = toggle(d.SavedResourceIDs, resourceID, saved)
	return nonNil(slices.Clone(d.SavedResourceIDs)), nil
}

// toggle adds or removes id, keeping insertion order and uniqueness.
func toggle(set []string, id string, present bool) []string {
	i := slices.Index(set, id)
	switch {
	case present && i < 0:
		return append(set, id)
	case !present && i >= 0:
		return slices.Delete(set, i, i+1)
	}
	return set
}

func (p *MainPath) clone() *MainPath {
	if p == nil {
		return nil
	}
	return &MainPath{Steps: cloneSteps(p.Steps), GeneratedAt: p.GeneratedAt}
}

func (p NamedPath) clone() NamedPath {
	p.Steps = cloneSteps(p.Steps)
	return p
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.Tips = slices.Clone(s.Tips)
		s.Resources = slices.Clone(s.Resources)
		out[i] = s
	}
	return out
}

func (d *Document) clone() *Document {
	c := &Document{
		MainPath:         d.MainPath.clone(),
		CompletedStepIDs: slices.Clone(d.CompletedStepIDs),
		SavedResourceIDs: slices.Clone(d.SavedResourceIDs),
		PathProgress:     make(map[string]PathProgress, len(d.PathProgress)),
	}
	if d.SpecificPaths != nil {
		c.SpecificPaths = make([]NamedPath, len(d.SpecificPaths))
		for i, p := range d.SpecificPaths {
			c.SpecificPaths[i] = p.clone()
		}
	}
	for k, v := range d.PathProgress {
		c.PathProgress[k] = PathProgress{CompletedSteps: slices.Clone(v.CompletedSteps)}
	}
	return c
}

var _ Store = (*MemoryStore)(nil)
