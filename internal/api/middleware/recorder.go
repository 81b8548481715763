package middleware

import (
	"context"
	"net/http"

	"github.com/hitchpath/hitchpath/internal/api/models"
)

// responseWriter records the status code and body size of a response.
// Logger, Tracing and Metrics each wrap the writer they receive.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestFields collects values learned deeper in the chain, such as the
// authenticated user, so outer middleware can report them after the
// handler returns.
type requestFields struct {
	userID string
}

type requestFieldsKey struct{}

// withRequestFields returns the holder already attached to ctx, or attaches
// a new one.
func withRequestFields(ctx context.Context) (context.Context, *requestFields) {
	if f, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		return ctx, f
	}
	f := &requestFields{}
	return context.WithValue(ctx, requestFieldsKey{}, f), f
}

func setLoggedUser(ctx context.Context, userID string) {
	if f, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		f.userID = userID
	}
}

// reject writes p stamped with the request ID and path.
func reject(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	p.TraceID = GetRequestID(r.Context())
	p.Instance = r.URL.Path
	p.Write(w)
}
