package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /admin/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r))
}

// UpsertFeatureFlags handles PUT /admin/feature-flags. Only known keys are
// accepted and the reason is written to the audit log.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	var unknown []models.FieldError
	flags := make([]featureflags.Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		if !featureflags.IsKnown(u.Key) {
			unknown = append(unknown, models.FieldError{Field: "updates.key", Message: "unknown flag " + u.Key})
			continue
		}
		flags = append(flags, featureflags.Flag{Key: u.Key, Value: u.Value})
	}
	if len(unknown) > 0 {
		response.BadRequest(w, r, "Unknown feature flag.", unknown)
		return
	}

	if err := h.service.Set(r.Context(), flags); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update feature flags.")
		return
	}

	event := h.logger.Info().Str("admin_id", userID(r)).Str("reason", req.Reason)
	for _, f := range flags {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, h.list(r))
}

// ResetFeatureFlag handles DELETE /admin/feature-flags/{key}, dropping the
// stored override.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !featureflags.IsKnown(key) {
		response.NotFound(w, r, "Unknown feature flag.")
		return
	}
	if err := h.service.Reset(r.Context(), key); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to reset feature flag.")
		return
	}
	h.logger.Info().Str("admin_id", userID(r)).Str("flag", key).Msg("feature flag reset")
	response.JSON(w, r, http.StatusOK, h.list(r))
}

// InvalidateCache handles POST /admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func (h *FeatureFlagsHandler) list(r *http.Request) featureflags.FlagList {
	return featureflags.FlagList{Items: h.service.All(r.Context())}
}
