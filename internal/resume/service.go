package resume

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/user"
)

// Service errors.
var (
	ErrAIDisabled       = errors.New("resume AI is disabled")
	ErrNothingToImprove = errors.New("current content is required")
)

var improvePrompt = template.Must(template.New("improve").Parse(
	`As an expert resume writer, improve the following {{.Section}} description for a {{.CareerPath}} professional.
Make it more impactful, quantifiable, and aligned with industry standards.
Current content: "{{.Current}}"

Requirements:
1. Use action verbs
2. Include metrics and results where possible
3. Highlight relevant technical skills
4. Keep it concise but detailed
5. Focus on achievements over responsibilities
6. Use industry-specific keywords

Format the response as a single paragraph without any additional text or explanations.`))

// Users loads the resume owner.
type Users interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Flags reports whether AI rewriting is switched off.
type Flags interface {
	ResumeAIDisabled(ctx context.Context) bool
}

// Config wires a Service.
type Config struct {
	Repo   Repository
	Users  Users
	Oracle llm.Completer
	Flags  Flags
	Logger zerolog.Logger
}

// Service manages resumes.
type Service struct {
	repo   Repository
	users  Users
	oracle llm.Completer
	flags  Flags
	logger zerolog.Logger
}

// NewService creates a resume service.
func NewService(cfg Config) *Service {
	return &Service{
		repo:   cfg.Repo,
		users:  cfg.Users,
		oracle: cfg.Oracle,
		flags:  cfg.Flags,
		logger: cfg.Logger.With().Str("component", "resume").Logger(),
	}
}

// Save replaces the user's resume with r.
func (s *Service) Save(ctx context.Context, userID string, r Resume) (*Resume, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	r.UserID = userID
	r.UpdatedAt = time.Now().UTC()
	r.normalize()
	if err := s.repo.Upsert(ctx, &r); err != nil {
		return nil, fmt.Errorf("saving resume: %w", err)
	}
	return &r, nil
}

// Get returns the user's resume.
func (s *Service) Get(ctx context.Context, userID string) (*Resume, error) {
	return s.repo.Get(ctx, userID)
}

// Improve rewrites one section of a resume for the user's career path.
func (s *Service) Improve(ctx context.Context, userID, current, section string) (string, error) {
	if s.flags != nil && s.flags.ResumeAIDisabled(ctx) {
		return "", ErrAIDisabled
	}
	if strings.TrimSpace(current) == "" {
		return "", ErrNothingToImprove
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	if section = strings.TrimSpace(section); section == "" {
		section = "resume"
	}
	var b strings.Builder
	err = improvePrompt.Execute(&b, map[string]string{
		"Section":    section,
		"CareerPath": u.Preferences.CareerPath,
		"Current":    current,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	out, err := s.oracle.Complete(ctx, llm.UserPrompt(b.String()))
	if err != nil {
		s.logger.Warn().Err(err).Str("section", section).Msg("resume rewrite failed")
		return "", fmt.Errorf("improving %s: %w", section, err)
	}
	return strings.TrimSpace(out), nil
}
