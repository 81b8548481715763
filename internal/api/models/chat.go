package models

import "github.com/hitchpath/hitchpath/internal/chat"

// ChatbotRequest is one user turn.
type ChatbotRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	ChatID  string `json:"chatId,omitempty"`
}

// ChatbotResponse is the formatted assistant reply.
type ChatbotResponse struct {
	Response string `json:"response"`
	ChatID   string `json:"chatId"`
}

// SaveChatRequest stores a client-held transcript.
type SaveChatRequest struct {
	ChatID   string         `json:"chatId,omitempty"`
	Messages []chat.Message `json:"messages" validate:"required,min=1,dive"`
}

// ChatResponse wraps a transcript.
type ChatResponse struct {
	Success bool       `json:"success,omitempty"`
	Chat    *chat.Chat `json:"chat"`
}

// ChatsResponse lists transcripts.
type ChatsResponse struct {
	Chats []chat.Summary `json:"chats"`
}

// DeletedResponse confirms a deletion.
type DeletedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
