package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem and an error log with
// the stack. http.ErrAbortHandler is re-panicked so net/http can drop the
// connection quietly.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				err := panicError(v)
				if errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				log.Error().
					Err(err).
					Str("request_id", GetRequestID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				reject(w, r, models.NewInternalError("", "Internal server error."))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
