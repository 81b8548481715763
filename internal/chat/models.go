// Package chat runs the context-aware assistant and stores its transcripts.
package chat

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of a transcript.
type Message struct {
	Sender    Sender    `json:"sender" validate:"required,oneof=user bot"`
	Text      string    `json:"text" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is a stored transcript owned by one user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the listing view of a chat.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewID generates a chat id.
func NewID() string {
	return "cht_" + uuid.New().String()
}

// Summary returns the listing view, deriving a title and preview from the
// first message when needed.
func (c *Chat) Summary() Summary {
	s := Summary{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if s.Title == "" {
		s.Title = defaultTitle(c.Messages)
	}
	if len(c.Messages) > 0 {
		s.Preview = truncate(c.Messages[0].Text, 60)
	}
	return s
}

func defaultTitle(msgs []Message) string {
	if len(msgs) == 0 {
		return "New Chat"
	}
	return truncate(msgs[0].Text, 30)
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func (c *Chat) clone() *Chat {
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	return &cp
}
