package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/chat"
	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/user"
)

// scriptedOracle answers title requests (MaxTokens 20) and chat requests separately.
type scriptedOracle struct {
	mu       sync.Mutex
	reply    string
	replyErr error
	title    string
	titleErr error
	chats    []llm.Request
	titles   []llm.Request
}

func (o *scriptedOracle) Complete(_ context.Context, req llm.Request) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if req.MaxTokens == 20 {
		o.titles = append(o.titles, req)
		return o.title, o.titleErr
	}
	o.chats = append(o.chats, req)
	return o.reply, o.replyErr
}

type disabledFlags bool

func (d disabledFlags) ChatbotDisabled(context.Context) bool { return bool(d) }

type fixture struct {
	svc    *chat.Service
	repo   *chat.InMemoryRepository
	oracle *scriptedOracle
	userID string
}

func newFixture(t *testing.T, flags chat.Flags) fixture {
	t.Helper()
	users := user.NewInMemoryRepository()
	u := user.New("ada@example.com", "Ada")
	u.Preferences.CareerPath = "Data Engineer"
	u.Preferences.LongTermGoals = "Lead a platform team"
	require.NoError(t, users.Create(context.Background(), u))

	f := fixture{
		repo:   chat.NewInMemoryRepository(),
		oracle: &scriptedOracle{reply: "Tip: practice SQL daily", title: `"SQL Practice Plan"`},
		userID: u.ID,
	}
	f.svc = chat.NewService(chat.Config{
		Repo:   f.repo,
		Oracle: f.oracle,
		Users:  users,
		Flags:  flags,
		Logger: zerolog.Nop(),
	})
	return f
}

func TestService_ReplyStartsChat(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reply, err := f.svc.Reply(ctx, f.userID, "How do I get better at SQL?", "")
	require.NoError(t, err)
	assert.Equal(t, "**Tip:** practice SQL daily", reply.Response)
	assert.True(t, strings.HasPrefix(reply.ChatID, "cht_"))

	require.Len(t, f.oracle.chats, 1)
	req := f.oracle.chats[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "You are AssistMe")
	assert.Contains(t, req.Messages[0].Content, "- Name: Ada")
	assert.Contains(t, req.Messages[0].Content, "- Career Path: Data Engineer")
	assert.Contains(t, req.Messages[0].Content, "- Long-Term Goals: Lead a platform team")
	assert.NotContains(t, req.Messages[0].Content, "Short-Term Goals")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "How do I get better at SQL?"}, req.Messages[1])
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	assert.Equal(t, 1000, req.MaxTokens)

	require.Len(t, f.oracle.titles, 1)
	assert.Contains(t, f.oracle.titles[0].Messages[0].Content, `Based on this message: "How do I get better at SQL?"`)

	stored, err := f.svc.Get(ctx, f.userID, reply.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "SQL Practice Plan", stored.Title)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, chat.SenderUser, stored.Messages[0].Sender)
	assert.Equal(t, chat.SenderBot, stored.Messages[1].Sender)
}

func TestService_ReplyContinuesChatWithRecentHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	msgs := make([]chat.Message, 0, 12)
	for i := 0; i < 12; i++ {
		sender := chat.SenderUser
		if i%2 == 1 {
			sender = chat.SenderBot
		}
		msgs = append(msgs, chat.Message{Sender: sender, Text: fmt.Sprintf("m%d", i)})
	}
	saved, err := f.svc.Save(ctx, f.userID, "", msgs)
	require.NoError(t, err)

	reply, err := f.svc.Reply(ctx, f.userID, "next", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, reply.ChatID)

	req := f.oracle.chats[0]
	// system + 10 history + current
	require.Len(t, req.Messages, 12)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "m2"}, req.Messages[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "m11"}, req.Messages[10])

	// Saved chats already have a title, so none is generated.
	assert.Empty(t, f.oracle.titles)

	stored, err := f.svc.Get(ctx, f.userID, saved.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 14)
}

func TestService_ReplyToForeignChatStartsNewOne(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	other, err := f.svc.Save(ctx, "usr_other", "", []chat.Message{{Sender: chat.SenderUser, Text: "secret"}})
	require.NoError(t, err)

	reply, err := f.svc.Reply(ctx, f.userID, "hello", other.ID)
	require.NoError(t, err)
	assert.NotEqual(t, other.ID, reply.ChatID)
	assert.Len(t, f.oracle.chats[0].Messages, 2)
}

func TestService_TitleFallbacks(t *testing.T) {
	long := "Please explain the differences between goroutines and threads"

	t.Run("oracle error uses message", func(t *testing.T) {
		f := newFixture(t, nil)
		f.oracle.titleErr = errors.New("boom")

		reply, err := f.svc.Reply(context.Background(), f.userID, long, "")
		require.NoError(t, err)

		c, err := f.svc.Get(context.Background(), f.userID, reply.ChatID)
		require.NoError(t, err)
		assert.Equal(t, "Please explain the differences...", c.Title)
	})

	t.Run("empty title", func(t *testing.T) {
		f := newFixture(t, nil)
		f.oracle.title = ` "" `

		reply, err := f.svc.Reply(context.Background(), f.userID, "hi", "")
		require.NoError(t, err)

		c, err := f.svc.Get(context.Background(), f.userID, reply.ChatID)
		require.NoError(t, err)
		assert.Equal(t, "Chat Session", c.Title)
	})

	t.Run("long title truncated", func(t *testing.T) {
		f := newFixture(t, nil)
		f.oracle.title = "“Concurrency Primitives In Modern Go Programs”"

		reply, err := f.svc.Reply(context.Background(), f.userID, "hi", "")
		require.NoError(t, err)

		c, err := f.svc.Get(context.Background(), f.userID, reply.ChatID)
		require.NoError(t, err)
		assert.Equal(t, "Concurrency Primitives In Mode...", c.Title)
	})
}

func TestService_ReplyErrors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, disabledFlags(true))
		_, err := f.svc.Reply(context.Background(), f.userID, "hi", "")
		assert.ErrorIs(t, err, chat.ErrDisabled)
	})

	t.Run("empty message", func(t *testing.T) {
		f := newFixture(t, disabledFlags(false))
		_, err := f.svc.Reply(context.Background(), f.userID, "  ", "")
		assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	})

	t.Run("oracle failure stores nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		f.oracle.replyErr = errors.New("unavailable")

		_, err := f.svc.Reply(context.Background(), f.userID, "hi", "")
		assert.Error(t, err)

		list, err := f.svc.List(context.Background(), f.userID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("empty completion falls back", func(t *testing.T) {
		f := newFixture(t, nil)
		f.oracle.replyErr = llm.ErrEmptyReply

		reply, err := f.svc.Reply(context.Background(), f.userID, "hi", "")
		require.NoError(t, err)
		assert.Equal(t, "I'm not sure how to respond to that.", reply.Response)
	})
}

func TestService_TranscriptCRUD(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.userID, "", nil)
	assert.ErrorIs(t, err, chat.ErrNoMessages)

	first, err := f.svc.Save(ctx, f.userID, "", []chat.Message{
		{Sender: chat.SenderUser, Text: "What should I learn after Python basics for data work?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "What should I learn after Pyth...", first.Title)
	assert.False(t, first.Messages[0].Timestamp.IsZero())

	second, err := f.svc.Save(ctx, f.userID, "", []chat.Message{{Sender: chat.SenderUser, Text: "short"}})
	require.NoError(t, err)

	updated, err := f.svc.Save(ctx, f.userID, first.ID, []chat.Message{
		{Sender: chat.SenderUser, Text: "replaced"},
		{Sender: chat.SenderBot, Text: "ok"},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Messages, 2)

	_, err = f.svc.Save(ctx, "usr_other", first.ID, []chat.Message{})
	assert.ErrorIs(t, err, chat.ErrChatNotFound)

	list, err := f.svc.List(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "most recently updated first")
	assert.Equal(t, 2, list[0].MessageCount)
	assert.Equal(t, "replaced", list[0].Preview)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = f.svc.Get(ctx, "usr_other", first.ID)
	assert.ErrorIs(t, err, chat.ErrChatNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, "usr_other", first.ID), chat.ErrChatNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.userID, first.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.userID, first.ID), chat.ErrChatNotFound)
}

func TestChat_Summary(t *testing.T) {
	c := &chat.Chat{ID: "cht_1"}
	assert.Equal(t, "New Chat", c.Summary().Title)
	assert.Empty(t, c.Summary().Preview)

	c.Messages = []chat.Message{{Text: strings.Repeat("x", 70)}}
	s := c.Summary()
	assert.Equal(t, strings.Repeat("x", 30)+"...", s.Title)
	assert.Equal(t, strings.Repeat("x", 60)+"...", s.Preview)
}
