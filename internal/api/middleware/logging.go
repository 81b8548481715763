package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger writes one access log line per request. Server errors log at error
// level and client errors at warn. The request ID and trace identifiers are
// attached to a child logger that handlers can fetch with zerolog.Ctx.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newResponseWriter(w)
			ctx, fields := withRequestFields(r.Context())

			reqLog := requestLogger(log, r)
			next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(ctx)))

			var ev *zerolog.Event
			switch {
			case rec.statusCode >= http.StatusInternalServerError:
				ev = reqLog.Error()
			case rec.statusCode >= http.StatusBadRequest:
				ev = reqLog.Warn()
			default:
				ev = reqLog.Info()
			}
			if fields.userID != "" {
				ev.Str("user_id", fields.userID)
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", rec.statusCode).
				Int64("bytes", rec.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

func requestLogger(log zerolog.Logger, r *http.Request) zerolog.Logger {
	lc := log.With()
	if id := GetRequestID(r.Context()); id != "" {
		lc = lc.Str("request_id", id)
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		lc = lc.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}
	return lc.Logger()
}
