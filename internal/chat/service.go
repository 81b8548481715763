package chat

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/llm"
	"github.com/hitchpath/hitchpath/internal/user"
)

const (
	historyLimit    = 10
	fallbackReply   = "I'm not sure how to respond to that."
	fallbackTitle   = "Chat Session"
	maxTitleRunes   = 30
	replyMaxTokens  = 1000
	titleMaxTokens  = 20
	replyTemp       = 0.7
	titleTemp       = 0.3
	titleQuoteChars = "\"“”"
)

// Service errors.
var (
	ErrDisabled     = errors.New("chatbot is disabled")
	ErrEmptyMessage = errors.New("message is required")
	ErrNoMessages   = errors.New("messages must be provided as an array")
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Users loads the caller's profile for prompt context.
type Users interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Flags reports whether the chatbot is switched off.
type Flags interface {
	ChatbotDisabled(ctx context.Context) bool
}

// Config wires a Service.
type Config struct {
	Repo   Repository
	Oracle llm.Completer
	Users  Users
	Flags  Flags
	Logger zerolog.Logger
}

// Service answers chat messages and manages transcripts.
type Service struct {
	repo   Repository
	oracle llm.Completer
	users  Users
	flags  Flags
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a chat service.
func NewService(cfg Config) *Service {
	return &Service{
		repo:   cfg.Repo,
		oracle: cfg.Oracle,
		users:  cfg.Users,
		flags:  cfg.Flags,
		logger: cfg.Logger.With().Str("component", "chat").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Reply is the assistant's answer and the chat it was stored in.
type Reply struct {
	Response string
	ChatID   string
}

// Reply answers message in the context of the user's profile and, when
// chatID names one of their chats, its recent history. Both turns are
// appended to that chat, or to a new one.
func (s *Service) Reply(ctx context.Context, userID, message, chatID string) (*Reply, error) {
	if s.flags != nil && s.flags.ChatbotDisabled(ctx) {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	var chat *Chat
	if chatID != "" {
		c, err := s.repo.Get(ctx, userID, chatID)
		switch {
		case err == nil:
			chat = c
		case !errors.Is(err, ErrChatNotFound):
			return nil, fmt.Errorf("loading chat: %w", err)
		}
	}

	system, err := s.systemPrompt(ctx, userID)
	if err != nil {
		return nil, err
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	if chat != nil {
		msgs = append(msgs, history(chat.Messages)...)
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	raw, err := s.oracle.Complete(ctx, llm.Request{
		Messages:    msgs,
		Temperature: llm.Temperature(replyTemp),
		MaxTokens:   replyMaxTokens,
	})
	if errors.Is(err, llm.ErrEmptyReply) {
		raw, err = fallbackReply, nil
	}
	if err != nil {
		return nil, fmt.Errorf("completing chat: %w", err)
	}
	response := FormatReply(raw)

	now := s.now()
	turn := []Message{
		{Sender: SenderUser, Text: message, Timestamp: now},
		{Sender: SenderBot, Text: response, Timestamp: now},
	}

	if chat != nil {
		chat.Messages = append(chat.Messages, turn...)
		chat.UpdatedAt = now
		if chat.Title == "" {
			chat.Title = s.title(ctx, message)
		}
		if err := s.repo.Update(ctx, chat); err != nil {
			return nil, fmt.Errorf("updating chat: %w", err)
		}
	} else {
		chat = &Chat{
			ID:        NewID(),
			UserID:    userID,
			Title:     s.title(ctx, message),
			Messages:  turn,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, chat); err != nil {
			return nil, fmt.Errorf("creating chat: %w", err)
		}
	}

	return &Reply{Response: response, ChatID: chat.ID}, nil
}

// systemPrompt renders the assistant instructions with whatever profile
// context exists. A missing user only drops the context.
func (s *Service) systemPrompt(ctx context.Context, userID string) (string, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			return "", fmt.Errorf("loading user: %w", err)
		}
	}

	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, "system.tmpl", u); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return b.String(), nil
}

func history(msgs []Message) []llm.Message {
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleAssistant
		if m.Sender == SenderUser {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return out
}

// title asks the oracle for a short chat title and falls back to the
// message itself when that fails.
func (s *Service) title(ctx context.Context, message string) string {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, "title.tmpl", message); err != nil {
		return truncate(message, maxTitleRunes)
	}

	raw, err := s.oracle.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: strings.TrimSpace(b.String())}},
		Temperature: llm.Temperature(titleTemp),
		MaxTokens:   titleMaxTokens,
	})
	if err != nil && !errors.Is(err, llm.ErrEmptyReply) {
		s.logger.Warn().Err(err).Msg("title generation failed")
		return truncate(message, maxTitleRunes)
	}

	t := strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(titleQuoteChars, r) {
			return -1
		}
		return r
	}, raw))
	if t == "" {
		return fallbackTitle
	}
	return truncate(t, maxTitleRunes)
}

// Save creates a chat from messages, or replaces the messages of an
// existing chat owned by the user.
func (s *Service) Save(ctx context.Context, userID, chatID string, messages []Message) (*Chat, error) {
	if messages == nil {
		return nil, ErrNoMessages
	}
	now := s.now()
	for i := range messages {
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
	}

	if chatID != "" {
		chat, err := s.repo.Get(ctx, userID, chatID)
		if err != nil {
			return nil, err
		}
		chat.Messages = messages
		chat.UpdatedAt = now
		if err := s.repo.Update(ctx, chat); err != nil {
			return nil, fmt.Errorf("updating chat: %w", err)
		}
		return chat, nil
	}

	chat := &Chat{
		ID:        NewID(),
		UserID:    userID,
		Title:     defaultTitle(messages),
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	return chat, nil
}

// List returns summaries of the user's chats, most recent first.
func (s *Service) List(ctx context.Context, userID string) ([]Summary, error) {
	chats, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	out := make([]Summary, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.Summary())
	}
	return out, nil
}

// Get returns one of the user's chats.
func (s *Service) Get(ctx context.Context, userID, chatID string) (*Chat, error) {
	return s.repo.Get(ctx, userID, chatID)
}

// Delete removes one of the user's chats.
func (s *Service) Delete(ctx context.Context, userID, chatID string) error {
	return s.repo.Delete(ctx, userID, chatID)
}
