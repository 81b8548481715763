package learning

import (
	"context"
	"strings"
)

// StepMark is a completion toggle for one step.
type StepMark struct {
	StepID    StepID
	Completed bool

	// PathID optionally scopes the mark to main or a named path id.
	PathID string
}

// pathStepID is the step id with a "<pathId>-" prefix removed.
func (m StepMark) pathStepID() string {
	id := m.StepID.String()
	if m.PathID == "" {
		return id
	}
	return strings.TrimPrefix(id, m.PathID+"-")
}

// ProgressService records step completion and resource bookmarks. Ids are
// stored as given; they are not checked against the user's current paths.
type ProgressService struct {
	store Store
}

// NewProgressService creates a progress service.
func NewProgressService(store Store) *ProgressService {
	return &ProgressService{store: store}
}

// SetStepCompletion adds or removes a completed step. Repeating a call is a
// no-op.
func (s *ProgressService) SetStepCompletion(ctx context.Context, userID string, mark StepMark) (Progress, error) {
	return s.store.SetStepCompleted(ctx, userID, mark)
}

// SetResourceSaved adds or removes a bookmark and returns the saved set.
func (s *ProgressService) SetResourceSaved(ctx context.Context, userID, resourceID string, saved bool) ([]string, error) {
	return s.store.SetResourceSaved(ctx, userID, resourceID, saved)
}

// GetProgress reads the completed and saved sets.
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (Progress, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return doc.progress(), nil
}

// SavedResources reads the saved set.
func (s *ProgressService) SavedResources(ctx context.Context, userID string) ([]string, error) {
	doc, err := s.store.Document(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(doc.SavedResourceIDs), nil
}
