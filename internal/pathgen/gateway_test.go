package pathgen_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/pathgen"
	"github.com/hitchpath/hitchpath/internal/user"
)

const validReply = `Here is your path:
{
  "steps": [
    {
      "id": 1,
      "title": "Learn Go syntax",
      "description": "Work through the tour",
      "milestone": "Finish the tour",
      "tips": ["Practice daily"],
      "resources": [{"title": "A Tour of Go", "url": "go.dev/tour"}]
    },
    {
      "id": "2b",
      "title": "Build a CLI",
      "description": "Write a small tool",
      "milestone": "Ship it"
    }
  ]
}
Good luck!`

type stubOracle struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (s *stubOracle) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

type staticFlags bool

func (f staticFlags) StructuredGeneration(context.Context) bool { return bool(f) }

type countingRecorder struct {
	kinds []string
	errs  []error
	steps []int
}

func (r *countingRecorder) RecordGeneration(kind string, _ time.Duration, steps int, err error) {
	r.kinds = append(r.kinds, kind)
	r.errs = append(r.errs, err)
	r.steps = append(r.steps, steps)
}

func newGateway(oracle llm.Completer, flags pathgen.Flags, rec pathgen.Recorder) *pathgen.Gateway {
	return pathgen.New(pathgen.Config{Oracle: oracle, Flags: flags, Recorder: rec, Logger: zerolog.Nop()})
}

func prefs() user.Preferences {
	p := user.DefaultPreferences()
	p.CareerPath = "Backend Engineer"
	p.SkillLevel = user.LevelIntermediate
	return p
}

func TestGateway_GenerateFromPreferences(t *testing.T) {
	oracle := &stubOracle{reply: validReply}
	rec := &countingRecorder{}
	gw := newGateway(oracle, nil, rec)

	steps, err := gw.GenerateFromPreferences(context.Background(), prefs())
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, learning.StepID("1"), steps[0].ID)
	assert.Equal(t, "Finish the tour", steps[0].Milestone)
	assert.Equal(t, []string{"Practice daily"}, steps[0].Tips)
	assert.Equal(t, "go.dev/tour", steps[0].Resources[0].URL)

	assert.Equal(t, learning.StepID("2b"), steps[1].ID)
	assert.NotNil(t, steps[1].Tips)
	assert.Empty(t, steps[1].Tips)
	assert.NotNil(t, steps[1].Resources)

	require.Len(t, oracle.requests, 1)
	req := oracle.requests[0]
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Career Path: Backend Engineer")
	assert.Contains(t, req.Messages[0].Content, "Current Skill Level: intermediate")
	assert.Contains(t, req.Messages[0].Content, "Preferred Learning Style: visual")
	assert.Contains(t, req.Messages[0].Content, `"tips"`)
	assert.True(t, req.JSON)

	assert.Equal(t, []string{"preferences"}, rec.kinds)
	assert.Equal(t, []int{2}, rec.steps)
	assert.NoError(t, rec.errs[0])
}

func TestGateway_GenerateForTopic(t *testing.T) {
	oracle := &stubOracle{reply: validReply}
	gw := newGateway(oracle, staticFlags(false), nil)

	steps, err := gw.GenerateForTopic(context.Background(), "Kubernetes", "for platform work")
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	require.Len(t, oracle.requests, 1)
	content := oracle.requests[0].Messages[0].Content
	assert.Contains(t, content, `The user wants to master the topic "Kubernetes".`)
	assert.Contains(t, content, "Details: for platform work")
	assert.NotContains(t, content, `"tips"`)
	assert.False(t, oracle.requests[0].JSON)
}

func TestGateway_ReplyFailures(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		reason     string
		violations []string
	}{
		{
			name:   "no object",
			reply:  "Sorry, I cannot help with that.",
			reason: pathgen.ReasonNoJSON,
		},
		{
			name:   "closing brace first",
			reply:  "} then {",
			reason: pathgen.ReasonNoJSON,
		},
		{
			name:   "malformed",
			reply:  `{"steps": [ {"id": 1,, } ]}`,
			reason: pathgen.ReasonInvalidJSON,
		},
		{
			name:       "missing steps",
			reply:      `{"path": []}`,
			reason:     pathgen.ReasonSchemaViolation,
			violations: []string{"steps is required"},
		},
		{
			name:       "empty steps",
			reply:      `{"steps": []}`,
			reason:     pathgen.ReasonSchemaViolation,
			violations: []string{"steps must contain at least 1 step"},
		},
		{
			name:       "missing milestone",
			reply:      `{"steps": [{"id": 1, "title": "t", "description": "d"}]}`,
			reason:     pathgen.ReasonSchemaViolation,
			violations: []string{"steps[0].milestone is required"},
		},
		{
			name:       "resource without url",
			reply:      `{"steps": [{"id": 1, "title": "t", "description": "d", "milestone": "m", "resources": [{"title": "x"}]}]}`,
			reason:     pathgen.ReasonSchemaViolation,
			violations: []string{"steps[0].resources[0].url is required"},
		},
		{
			name: "duplicate ids",
			reply: `{"steps": [
				{"id": 1, "title": "a", "description": "d", "milestone": "m"},
				{"id": "1", "title": "b", "description": "d", "milestone": "m"}
			]}`,
			reason:     pathgen.ReasonSchemaViolation,
			violations: []string{"steps must have unique ids"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(&stubOracle{reply: tt.reply}, nil, nil)

			steps, err := gw.GenerateFromPreferences(context.Background(), prefs())
			assert.Nil(t, steps)

			var genErr *pathgen.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.reason, genErr.Reason)
			if tt.violations != nil {
				assert.Equal(t, tt.violations, genErr.Violations)
			}
		})
	}
}

func TestGateway_OracleFailure(t *testing.T) {
	cause := errors.New("connection refused")
	rec := &countingRecorder{}
	gw := newGateway(&stubOracle{err: cause}, nil, rec)

	_, err := gw.GenerateForTopic(context.Background(), "Rust", "")

	var genErr *pathgen.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, pathgen.ReasonOracleUnavailable, genErr.Reason)
	assert.ErrorIs(t, err, cause)
	require.Len(t, rec.errs, 1)
	assert.Error(t, rec.errs[0])
}

func TestGateway_CanceledContextNotWrapped(t *testing.T) {
	gw := newGateway(&stubOracle{err: context.Canceled}, nil, nil)

	_, err := gw.GenerateForTopic(context.Background(), "Rust", "")

	var genErr *pathgen.GenerationError
	assert.False(t, errors.As(err, &genErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerationError_Message(t *testing.T) {
	err := &pathgen.GenerationError{
		Reason:     pathgen.ReasonSchemaViolation,
		Violations: []string{"steps[0].title is required", "steps[1].milestone is required"},
	}
	assert.Equal(t,
		"path generation failed: schema violation (steps[0].title is required; steps[1].milestone is required)",
		err.Error())
}
