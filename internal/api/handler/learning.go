package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/learning"
)

// LearningHandler serves main and topic-specific learning paths.
type LearningHandler struct {
	paths  *learning.PathService
	logger zerolog.Logger
}

// NewLearningHandler creates a new LearningHandler.
func NewLearningHandler(paths *learning.PathService, logger zerolog.Logger) *LearningHandler {
	return &LearningHandler{paths: paths, logger: logger}
}

// MainPath handles GET /api/generate-learning-path. The path is generated on
// the first call and served from storage afterwards.
func (h *LearningHandler) MainPath(w http.ResponseWriter, r *http.Request) {
	steps, err := h.paths.GetMainPath(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to generate learning path.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.LearningPathResponse{LearningPath: models.StepsFromDomain(steps)})
}

// ResetMainPath handles POST /api/reset-learning-path.
func (h *LearningHandler) ResetMainPath(w http.ResponseWriter, r *http.Request) {
	if err := h.paths.ResetMainPath(r.Context(), userID(r)); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to reset learning path.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Message{Message: "Learning path reset successfully."})
}

// CreateSpecificPath handles POST /api/specific-path/generate. Every call
// appends a new path, even for a repeated topic.
func (h *LearningHandler) CreateSpecificPath(w http.ResponseWriter, r *http.Request) {
	var req models.SpecificPathRequest
	if !decode(w, r, &req) {
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		response.BadRequest(w, r, "Topic is required.", nil)
		return
	}

	p, err := h.paths.CreateNamedPath(r.Context(), userID(r), topic, strings.TrimSpace(req.Details))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to generate the path.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.SpecificPathResponse{SpecificPath: models.NamedPathFromDomain(p)})
}

// ListSpecificPaths handles GET /api/specific-paths.
func (h *LearningHandler) ListSpecificPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.paths.ListNamedPaths(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch specific paths.")
		return
	}
	out := make([]models.NamedPath, 0, len(paths))
	for _, p := range paths {
		out = append(out, models.NamedPathFromDomain(p))
	}
	response.JSON(w, r, http.StatusOK, models.SpecificPathsResponse{SpecificPaths: out})
}

// GetSpecificPath handles GET /api/specific-paths/{pathId}.
func (h *LearningHandler) GetSpecificPath(w http.ResponseWriter, r *http.Request) {
	p, err := h.paths.GetNamedPath(r.Context(), userID(r), chi.URLParam(r, "pathId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch specific path.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.SpecificPathResponse{SpecificPath: models.NamedPathFromDomain(p)})
}

// PathProgress handles GET /api/learning-paths/{pathId}/progress. Use "main"
// for the main path.
func (h *LearningHandler) PathProgress(w http.ResponseWriter, r *http.Request) {
	sum, err := h.paths.PathProgressSummary(r.Context(), userID(r), chi.URLParam(r, "pathId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to compute progress.")
		return
	}
	response.JSON(w, r, http.StatusOK, models.PathProgressResponse{
		PathID:          sum.PathID,
		TotalSteps:      sum.TotalSteps,
		CompletedSteps:  sum.CompletedSteps,
		PercentComplete: sum.PercentComplete,
	})
}
