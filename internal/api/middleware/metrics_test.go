package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
)

func collectRequests(t *testing.T, reader *sdkmetric.ManualReader) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.server.request.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				return sum.DataPoints
			}
		}
	}
	return nil
}

func attr(set attribute.Set, key attribute.Key) attribute.Value {
	v, _ := set.Value(key)
	return v
}

func TestMetrics_LabelsByRoute(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := middleware.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/api/chats/{chatId}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(r, "chatId")))
	})
	r.Post("/api/chatbot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for _, id := range []string{"c1", "c2", "c3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chats/"+id, http.NoBody))
		assert.Equal(t, id, w.Body.String())
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chatbot", http.NoBody))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))

	byRoute := map[string]metricdata.DataPoint[int64]{}
	for _, dp := range collectRequests(t, reader) {
		byRoute[attr(dp.Attributes, "http.route").AsString()] = dp
	}
	require.Len(t, byRoute, 3)

	chats := byRoute["/api/chats/{chatId}"]
	assert.Equal(t, int64(3), chats.Value)
	assert.Equal(t, int64(http.StatusOK), attr(chats.Attributes, "http.response.status_code").AsInt64())
	assert.False(t, chats.Attributes.HasValue("error.type"))

	bot := byRoute["/api/chatbot"]
	assert.Equal(t, "POST", attr(bot.Attributes, "http.request.method").AsString())
	assert.Equal(t, "Service Unavailable", attr(bot.Attributes, "error.type").AsString())

	assert.Equal(t, int64(1), byRoute["unmatched"].Value)
}

func TestMetrics_GlobalProvider(t *testing.T) {
	metrics, err := middleware.NewMetrics(nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	metrics.Middleware()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ops/health", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
}
