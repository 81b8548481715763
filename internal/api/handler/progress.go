package handler

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/learning"
)

// ProgressHandler serves step completion and resource bookmarks.
type ProgressHandler struct {
	progress *learning.ProgressService
	logger   zerolog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progress *learning.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, logger: logger}
}

// GetProgress handles GET /api/user/progress.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress.GetProgress(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch progress.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ProgressResponse{
		CompletedSteps: p.CompletedSteps,
		SavedResources: p.SavedResources,
		PathProgress:   p.PathProgress,
	})
}

// SetStepProgress handles POST /api/user/progress. Step ids are not checked
// against the caller's paths.
func (h *ProgressHandler) SetStepProgress(w http.ResponseWriter, r *http.Request) {
	var req models.StepProgressRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.StepID.String()) == "" {
		response.BadRequest(w, r, "Step ID is required.", nil)
		return
	}

	p, err := h.progress.SetStepCompletion(r.Context(), userID(r), learning.StepMark{
		StepID:    req.StepID,
		Completed: req.Completed,
		PathID:    strings.TrimSpace(req.PathID),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update progress.")
		return
	}

	msg := "Step marked as incomplete."
	if req.Completed {
		msg = "Step marked as complete."
	}
	response.JSON(w, r, http.StatusOK, models.StepProgressResponse{
		Message:        msg,
		CompletedSteps: p.CompletedSteps,
		PathProgress:   p.PathProgress,
	})
}

// SaveResource handles POST /api/user/save-resource. Resource ids follow
// "<stepId>-<index>" by convention and are stored as given.
func (h *ProgressHandler) SaveResource(w http.ResponseWriter, r *http.Request) {
	var req models.SaveResourceRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ResourceID) == "" {
		response.BadRequest(w, r, "Resource ID is required.", nil)
		return
	}

	saved, err := h.progress.SetResourceSaved(r.Context(), userID(r), req.ResourceID, req.Saved)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update saved resources.")
		return
	}

	msg := "Resource unsaved."
	if req.Saved {
		msg = "Resource saved."
	}
	response.JSON(w, r, http.StatusOK, models.SavedResourcesResponse{Message: msg, SavedResources: saved})
}

// SavedResources handles GET /api/user/saved-resources.
func (h *ProgressHandler) SavedResources(w http.ResponseWriter, r *http.Request) {
	saved, err := h.progress.SavedResources(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch saved resources.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.SavedResourcesResponse{SavedResources: saved})
}
