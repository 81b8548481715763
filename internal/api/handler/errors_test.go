package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hitchpath/hitchpath/internal/learning"
	"github.com/hitchpath/hitchpath/internal/lock"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown path", learning.ErrPathNotFound, http.StatusNotFound},
		{"lock busy", fmt.Errorf("acquiring generation lock: %w", lock.ErrNotAcquired), http.StatusServiceUnavailable},
		{"canceled elsewhere", fmt.Errorf("generating: %w", context.Canceled), http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/generate-learning-path", nil)
			rec := httptest.NewRecorder()

			writeServiceError(rec, req, zerolog.Nop(), tt.err, "Failed.")

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "problem+json")
		})
	}
}

func TestWriteServiceError_ClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/generate-learning-path", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	writeServiceError(rec, req, zerolog.Nop(), ctx.Err(), "Failed.")

	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}
