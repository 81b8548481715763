// Package llm defines the text-completion oracle used by path generation,
// the chatbot and resume rewriting.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyReply is returned when a provider answers without any content.
var ErrEmptyReply = errors.New("llm: empty completion")

// Message roles understood by chat-completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	Messages []Message

	// Temperature is passed through when non-nil.
	Temperature *float64

	// MaxTokens is passed through when positive.
	MaxTokens int

	// JSON asks the provider to constrain its reply to a JSON object.
	JSON bool
}

// Completer returns the text of the first choice for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// UserPrompt builds a request with a single user message and no history.
func UserPrompt(prompt string) Request {
	return Request{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

// Temperature returns a pointer for Request.Temperature.
func Temperature(t float64) *float64 {
	return &t
}
