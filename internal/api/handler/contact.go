package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/contact"
)

// ContactHandler accepts the public contact form.
type ContactHandler struct {
	contacts *contact.Service
	logger   zerolog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contacts *contact.Service, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contact.Message
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.contacts.Submit(r.Context(), req); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to send message.")
		return
	}
	response.Created(w, r, "", models.Message{Message: "Message sent successfully."})
}
