package middleware

import (
	"net/http"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hitchpath/hitchpath/internal/api/middleware"

// Tracing starts a server span per request, continuing any trace carried in
// the incoming headers. Requests to skipPaths, typically probes, are served
// without a span.
//
// The span is renamed to "METHOD /route/{param}" once routing has resolved,
// and carries the authenticated user when there is one.
func Tracing(skipPaths ...string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(skipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, fields := withRequestFields(ctx)
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.scheme", scheme(r)),
					attribute.String("url.path", r.URL.Path),
					attribute.String("server.address", r.Host),
					attribute.String("client.address", r.RemoteAddr),
					attribute.String("user_agent.original", r.UserAgent()),
				),
			)
			defer span.End()

			if id := GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			rec := newResponseWriter(w)
			req := r.WithContext(ctx)
			next.ServeHTTP(rec, req)

			// chi fills the route context in place, so the pattern is only
			// known after the handler has run.
			if route := routePattern(req); route != unmatchedRoute {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(attribute.String("http.route", route))
			}
			span.SetAttributes(
				attribute.Int("http.response.status_code", rec.statusCode),
				attribute.Int64("http.response.body.size", rec.written),
			)
			if fields.userID != "" {
				span.SetAttributes(attribute.String("enduser.id", fields.userID))
			}
			if rec.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

func scheme(r *http.Request) string {
	switch {
	case r.TLS != nil:
		return "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		return r.Header.Get("X-Forwarded-Proto")
	default:
		return "http"
	}
}
