package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/lock"
	"github.com/hitchpath/hitchpath/internal/pathgen"
	"github.com/hitchpath/hitchpath/internal/user"
)

// writeServiceError maps errors shared by the bearer handlers. fallback is
// the message used for anything unexpected.
func writeServiceError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, fallback string) {
	var genErr *pathgen.GenerationError
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		response.NotFound(w, r, "User not found.")
	case errors.Is(err, learning.ErrPathNotFound):
		response.NotFound(w, r, "Learning path not found.")
	case errors.Is(err, lock.ErrNotAcquired):
		response.ServiceUnavailable(w, r, "Learning path generation is already in progress. Try again shortly.")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nothing useful can be written.
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request canceled")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("request abandoned upstream")
		response.ServiceUnavailable(w, r, "The request could not be completed in time. Try again shortly.")
	case errors.As(err, &genErr):
		log.Warn().Err(err).Str("reason", genErr.Reason).Strs("violations", genErr.Violations).Msg("path generation failed")
		response.InternalError(w, r, fallback)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, fallback)
	}
}
