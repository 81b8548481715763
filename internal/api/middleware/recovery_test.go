package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
)

func panicking(v any) http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(v) })
}

func TestRecovery_WritesProblem(t *testing.T) {
	for name, v := range map[string]any{
		"string": "boom",
		"error":  errors.New("boom"),
	} {
		t.Run(name, func(t *testing.T) {
			var logs bytes.Buffer
			h := middleware.RequestID(middleware.Recovery(zerolog.New(&logs))(panicking(v)))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chats", http.NoBody))

			require.Equal(t, http.StatusInternalServerError, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Internal server error.", body["error"])
			assert.Equal(t, "/api/chats", body["instance"])
			assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), body["traceId"])

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			assert.Equal(t, "panic recovered", entry["message"])
			assert.Contains(t, entry["error"], "boom")
			assert.NotEmpty(t, entry["stack"])
		})
	}
}

func TestRecovery_ReraisesAbort(t *testing.T) {
	h := middleware.Recovery(zerolog.Nop())(panicking(http.ErrAbortHandler))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	})
}
