package resume_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/resume"
	"github.com/hitchpath/hitchpath/internal/user"
)

type aiOff bool

func (a aiOff) ResumeAIDisabled(context.Context) bool { return bool(a) }

func setup(t *testing.T, oracle llm.Completer, flags resume.Flags) (*resume.Service, string) {
	t.Helper()
	users := user.NewInMemoryRepository()
	u := user.New("ada@example.com", "Ada")
	u.Preferences.CareerPath = "Site Reliability Engineer"
	require.NoError(t, users.Create(context.Background(), u))

	return resume.NewService(resume.Config{
		Repo:   resume.NewInMemoryRepository(),
		Users:  users,
		Oracle: oracle,
		Flags:  flags,
		Logger: zerolog.Nop(),
	}), u.ID
}

func TestService_SaveAndGet(t *testing.T) {
	svc, userID := setup(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, userID)
	assert.ErrorIs(t, err, resume.ErrResumeNotFound)

	saved, err := svc.Save(ctx, userID, resume.Resume{
		ContactInfo: resume.ContactInfo{Email: "ada@example.com", Location: "London"},
		Summary:     "Engineer",
		Experience:  []json.RawMessage{json.RawMessage(`{"company":"Acme","years":3}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, userID, saved.UserID)
	assert.False(t, saved.UpdatedAt.IsZero())
	assert.NotNil(t, saved.Projects)

	// A second save replaces the first.
	_, err = svc.Save(ctx, userID, resume.Resume{Summary: "Senior engineer"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Senior engineer", got.Summary)
	assert.Empty(t, got.Experience)
	assert.Empty(t, got.ContactInfo.Location)
}

func TestService_SaveUnknownUser(t *testing.T) {
	svc, _ := setup(t, nil, nil)
	_, err := svc.Save(context.Background(), "usr_missing", resume.Resume{})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestService_Improve(t *testing.T) {
	var got llm.Request
	oracle := llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return "  Cut incident response time by 40% across 12 services.  \n", nil
	})
	svc, userID := setup(t, oracle, aiOff(false))

	out, err := svc.Improve(context.Background(), userID, "Handled incidents", "experience")
	require.NoError(t, err)
	assert.Equal(t, "Cut incident response time by 40% across 12 services.", out)

	require.Len(t, got.Messages, 1)
	prompt := got.Messages[0].Content
	assert.Contains(t, prompt, "improve the following experience description for a Site Reliability Engineer professional")
	assert.Contains(t, prompt, `Current content: "Handled incidents"`)
}

func TestService_ImproveErrors(t *testing.T) {
	failing := llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("provider down")
	})

	t.Run("disabled", func(t *testing.T) {
		svc, userID := setup(t, failing, aiOff(true))
		_, err := svc.Improve(context.Background(), userID, "x", "summary")
		assert.ErrorIs(t, err, resume.ErrAIDisabled)
	})

	t.Run("empty content", func(t *testing.T) {
		svc, userID := setup(t, failing, nil)
		_, err := svc.Improve(context.Background(), userID, " ", "summary")
		assert.ErrorIs(t, err, resume.ErrNothingToImprove)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _ := setup(t, failing, nil)
		_, err := svc.Improve(context.Background(), "usr_missing", "x", "summary")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("oracle failure", func(t *testing.T) {
		svc, userID := setup(t, failing, nil)
		_, err := svc.Improve(context.Background(), userID, "x", "summary")
		assert.ErrorContains(t, err, "provider down")
	})
}
