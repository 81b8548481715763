package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/resume"
)

// ResumeHandler serves the caller's resume.
type ResumeHandler struct {
	resumes *resume.Service
	logger  zerolog.Logger
}

// NewResumeHandler creates a new ResumeHandler.
func NewResumeHandler(resumes *resume.Service, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{resumes: resumes, logger: logger}
}

// Save handles POST /api/save-resume.
func (h *ResumeHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req resume.Resume
	if !decode(w, r, &req) {
		return
	}

	saved, err := h.resumes.Save(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to save resume.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ResumeResponse{Message: "Resume saved", Resume: saved})
}

// Get handles GET /api/resume.
func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.resumes.Get(r.Context(), userID(r))
	if errors.Is(err, resume.ErrResumeNotFound) {
		response.NotFound(w, r, "Resume not found.")
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch resume.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ResumeResponse{Resume: res})
}

// Improve handles POST /improve-with-ai.
func (h *ResumeHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var req models.ImproveRequest
	if !decode(w, r, &req) {
		return
	}

	content, err := h.resumes.Improve(r.Context(), userID(r), req.Current, req.Type)
	switch {
	case errors.Is(err, resume.ErrAIDisabled):
		response.ServiceUnavailable(w, r, "AI resume improvements are currently unavailable.")
	case errors.Is(err, resume.ErrNothingToImprove):
		response.BadRequest(w, r, "Current content is required.", nil)
	case err != nil:
		writeServiceError(w, r, h.logger, err, "Failed to improve content.")
	default:
		response.JSON(w, r, http.StatusOK, models.ImproveResponse{Content: content})
	}
}
