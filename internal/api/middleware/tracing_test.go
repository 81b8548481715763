package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func serve(h http.Handler, req *http.Request) {
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestTracing_SpanPerRequest(t *testing.T) {
	sr := recordSpans(t)

	h := middleware.Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, trace.SpanFromContext(r.Context()).SpanContext().IsValid())
		w.WriteHeader(http.StatusNotFound)
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/resume", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/resume", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	status, ok := spanAttr(spans[0], "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracing_NamesSpanByRoute(t *testing.T) {
	sr := recordSpans(t)

	r := chi.NewRouter()
	r.Use(middleware.Tracing())
	r.Get("/api/chats/{chatId}", func(w http.ResponseWriter, r *http.Request) {})
	serve(r, httptest.NewRequest(http.MethodGet, "/api/chats/8f14e45f", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/chats/{chatId}", spans[0].Name())
	route, ok := spanAttr(spans[0], "http.route")
	require.True(t, ok)
	assert.Equal(t, "/api/chats/{chatId}", route.AsString())
}

func TestTracing_SkipPaths(t *testing.T) {
	sr := recordSpans(t)

	h := middleware.Tracing("/ops/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, trace.SpanFromContext(r.Context()).SpanContext().IsValid())
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/ops/health", nil))

	assert.Empty(t, sr.Ended())
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	sr := recordSpans(t)

	h := middleware.Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", nil)
	req.Header.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	serve(h, req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "b7ad6b7169203331", spans[0].Parent().SpanID().String())
}

func TestTracing_ServerErrorSetsStatus(t *testing.T) {
	sr := recordSpans(t)

	h := middleware.Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/generate-learning-path", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Bad Gateway", spans[0].Status().Description)
}

func TestTracing_RequestAndUserAttributes(t *testing.T) {
	sr := recordSpans(t)

	jwtService := newJWTService(time.Hour)
	h := middleware.RequestID(middleware.Tracing()(middleware.Auth(jwtService)(okHandler())))

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, jwtService, false))
	serve(h, req)

	spans := sr.Ended()
	require.Len(t, spans, 1)

	id, ok := spanAttr(spans[0], "request.id")
	require.True(t, ok)
	assert.Contains(t, id.AsString(), "req_")

	user, ok := spanAttr(spans[0], "enduser.id")
	require.True(t, ok)
	assert.Equal(t, "usr_ada", user.AsString())
}
