package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/user"
)

// UserHandler serves the caller's profile.
type UserHandler struct {
	users  *user.Service
	logger zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *user.Service, logger zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Profile handles GET /api/user/profile.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Internal server error.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.UserResponse{User: models.UserFromDomain(u)})
}

// UpdateProfile handles POST /api/user/update.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileInput
	if !decode(w, r, &req) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), userID(r), req.ToDomain())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Internal server error.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.UserUpdatedResponse{
		Message: "User information updated successfully.",
		User:    models.UserFromDomain(u),
	})
}

// ProfileCompleted handles GET /api/user-info/completed.
func (h *UserHandler) ProfileCompleted(w http.ResponseWriter, r *http.Request) {
	done, err := h.users.ProfileComplete(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Internal server error.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.CompletedResponse{Completed: done})
}
