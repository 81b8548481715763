package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/chat"
)

// ChatHandler serves the chatbot and stored transcripts.
type ChatHandler struct {
	chats  *chat.Service
	logger zerolog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats *chat.Service, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

// Reply handles POST /api/chatbot.
func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req models.ChatbotRequest
	if !decode(w, r, &req) {
		return
	}

	reply, err := h.chats.Reply(r.Context(), userID(r), req.Message, req.ChatID)
	if err != nil {
		h.writeError(w, r, err, "Failed to generate a response.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatbotResponse{Response: reply.Response, ChatID: reply.ChatID})
}

// Save handles POST /api/chats.
func (h *ChatHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveChatRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.chats.Save(r.Context(), userID(r), req.ChatID, req.Messages)
	if err != nil {
		h.writeError(w, r, err, "Failed to save chat.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatResponse{Success: true, Chat: c})
}

// List handles GET /api/chats.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.List(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch chats.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatsResponse{Chats: chats})
}

// Get handles GET /api/chats/{chatId}.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.chats.Get(r.Context(), userID(r), chi.URLParam(r, "chatId"))
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch chat.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatResponse{Chat: c})
}

// Delete handles DELETE /api/chats/{chatId}.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chats.Delete(r.Context(), userID(r), chi.URLParam(r, "chatId")); err != nil {
		h.writeError(w, r, err, "Failed to delete chat.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.DeletedResponse{Success: true, Message: "Chat deleted successfully."})
}

func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, chat.ErrDisabled):
		response.ServiceUnavailable(w, r, "The chatbot is currently unavailable.")
	case errors.Is(err, chat.ErrEmptyMessage):
		response.BadRequest(w, r, "Message is required.", nil)
	case errors.Is(err, chat.ErrNoMessages):
		response.BadRequest(w, r, "Messages must be provided as an array.", nil)
	case errors.Is(err, chat.ErrChatNotFound):
		response.NotFound(w, r, "Chat not found.")
	default:
		writeServiceError(w, r, h.logger, err, fallback)
	}
}
