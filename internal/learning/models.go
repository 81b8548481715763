// Package learning owns the per-user learning document: the main path,
// topic-specific named paths, and step/resource progress.
package learning

import (
	"net/url"
	"strings"
	"time"
)

// Resource is a recommended link.
type Resource struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required"`
}

const fallbackResourceURL = "https://www.google.com/search?q=learning+resources"

// Href is the resource URL repaired for use as a hyperlink.
func (r Resource) Href() string {
	return NormalizeResourceURL(r.URL)
}

// NormalizeResourceURL repairs a generated URL: scheme-less values get
// https:// and anything still unusable becomes a search query.
func NormalizeResourceURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallbackResourceURL
	}
	if !strings.HasPrefix(strings.ToLower(s), "http") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && !strings.ContainsAny(u.Host, " \t") {
		return u.String()
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(strings.TrimSpace(raw))
}

// Step is one unit of a learning path.
type Step struct {
	ID          StepID     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
	Milestone   string     `json:"milestone" validate:"required"`
	Tips        []string   `json:"tips"`
	Resources   []Resource `json:"resources" validate:"dive"`
}

// ResourceID returns the id of the step's i-th resource.
func (s Step) ResourceID(i int) ResourceID {
	return ResourceID{StepID: s.ID, Index: i}
}

// MainPath is the user's generated roadmap.
type MainPath struct {
	Steps       []Step    `json:"steps"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NamedPath is a roadmap generated for a specific topic.
type NamedPath struct {
	ID      string `json:"id"`
	Ordinal int    `json:"ordinal"`
	Topic   string `json:"topic"`
	Details string `json:"details,omitempty"`
	Steps   []Step `json:"learningPath"`

	CreatedAt time.Time `json:"createdAt"`
}

// PathProgress is the completion state tracked for one path.
type PathProgress struct {
	CompletedSteps []string `json:"completedSteps"`
}

// Document is everything stored for a user's learning.
type Document struct {
	MainPath         *MainPath
	SpecificPaths    []NamedPath
	CompletedStepIDs []string
	SavedResourceIDs []string
	PathProgress     map[string]PathProgress
}

// HasMainPath reports whether a main path was generated and not reset.
func (d *Document) HasMainPath() bool {
	return d.MainPath != nil
}

// NamedPath returns the named path with the given id.
func (d *Document) NamedPath(id string) (NamedPath, bool) {
	for _, p := range d.SpecificPaths {
		if p.ID == id {
			return p, true
		}
	}
	return NamedPath{}, false
}

// Progress is the readable progress state of a user.
type Progress struct {
	CompletedSteps []string
	SavedResources []string
	PathProgress   map[string]PathProgress
}

func (d *Document) progress() Progress {
	return Progress{
		CompletedSteps: nonNil(d.CompletedStepIDs),
		SavedResources: nonNil(d.SavedResourceIDs),
		PathProgress:   nonNilMap(d.PathProgress),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]PathProgress) map[string]PathProgress {
	if m == nil {
		return map[string]PathProgress{}
	}
	return m
}
