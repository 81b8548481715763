package models

import (
	"time"

	"github.com/hitchpath/hitchpath/internal/learning"
)

// Resource is a step resource with its repaired link.
type Resource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Href  string `json:"href"`
}

// Step is a learning path step as served to clients.
type Step struct {
	ID          learning.StepID `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Milestone   string          `json:"milestone"`
	Tips        []string        `json:"tips"`
	Resources   []Resource      `json:"resources"`
}

// StepsFromDomain converts generated steps, never returning nil.
func StepsFromDomain(steps []learning.Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, s := range steps {
		res := make([]Resource, 0, len(s.Resources))
		for i, r := range s.Resources {
			res = append(res, Resource{
				ID:    s.ResourceID(i).String(),
				Title: r.Title,
				URL:   r.URL,
				Href:  r.Href(),
			})
		}
		tips := s.Tips
		if tips == nil {
			tips = []string{}
		}
		out = append(out, Step{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Milestone:   s.Milestone,
			Tips:        tips,
			Resources:   res,
		})
	}
	return out
}

// LearningPathResponse is the main path.
type LearningPathResponse struct {
	LearningPath []Step `json:"learningPath"`
}

// NamedPath is a topic path as served to clients.
type NamedPath struct {
	ID           string    `json:"id"`
	Ordinal      int       `json:"ordinal"`
	Topic        string    `json:"topic"`
	Details      string    `json:"details,omitempty"`
	LearningPath []Step    `json:"learningPath"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NamedPathFromDomain converts a named path.
func NamedPathFromDomain(p learning.NamedPath) NamedPath {
	return NamedPath{
		ID:           p.ID,
		Ordinal:      p.Ordinal,
		Topic:        p.Topic,
		Details:      p.Details,
		LearningPath: StepsFromDomain(p.Steps),
		CreatedAt:    p.CreatedAt,
	}
}

// SpecificPathRequest asks for a topic path.
type SpecificPathRequest struct {
	Topic   string `json:"topic" validate:"required,max=200"`
	Details string `json:"details" validate:"max=2000"`
}

// SpecificPathResponse wraps one named path.
type SpecificPathResponse struct {
	SpecificPath NamedPath `json:"specificPath"`
}

// SpecificPathsResponse lists named paths.
type SpecificPathsResponse struct {
	SpecificPaths []NamedPath `json:"specificPaths"`
}

// PathProgressResponse is the server-side progress summary of one path.
type PathProgressResponse struct {
	PathID          string   `json:"pathId"`
	TotalSteps      int      `json:"totalSteps"`
	CompletedSteps  []string `json:"completedSteps"`
	PercentComplete int      `json:"percentComplete"`
}

// ProgressResponse is GET /api/user/progress.
type ProgressResponse struct {
	CompletedSteps []string                         `json:"completedSteps"`
	SavedResources []string                         `json:"savedResources"`
	PathProgress   map[string]learning.PathProgress `json:"pathProgress"`
}

// StepProgressRequest toggles a step. StepID accepts a number or a string.
type StepProgressRequest struct {
	StepID    learning.StepID `json:"stepId"`
	Completed bool            `json:"completed"`
	PathID    string          `json:"pathId,omitempty"`
}

// StepProgressResponse is returned after a step toggle.
type StepProgressResponse struct {
	Message        string                           `json:"message"`
	CompletedSteps []string                         `json:"completedSteps"`
	PathProgress   map[string]learning.PathProgress `json:"pathProgress"`
}

// SaveResourceRequest toggles a bookmark.
type SaveResourceRequest struct {
	ResourceID string `json:"resourceId"`
	Saved      bool   `json:"saved"`
}

// SavedResourcesResponse lists bookmarks, with a confirmation after a toggle.
type SavedResourcesResponse struct {
	Message        string   `json:"message,omitempty"`
	SavedResources []string `json:"savedResources"`
}
