package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/hitchpath/hitchpath/internal/api/middleware"

// Metrics records HTTP server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the HTTP instruments on mp, or on the global provider
// when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var m Metrics
	var errs [4]error
	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"), metric.WithUnit("s"))
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP server requests"), metric.WithUnit("{request}"))
	m.active, errs[2] = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests being served"), metric.WithUnit("{request}"))
	m.size, errs[3] = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Size of HTTP response bodies"), metric.WithUnit("By"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records each request under its chi route pattern.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()
			method := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.active.Add(ctx, 1, method)
			defer m.active.Add(ctx, -1, method)

			rec := newResponseWriter(w)
			next.ServeHTTP(rec, r)

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", rec.statusCode),
			}
			if rec.statusCode >= http.StatusInternalServerError {
				attrs = append(attrs, attribute.String("error.type", http.StatusText(rec.statusCode)))
			}
			set := metric.WithAttributes(attrs...)
			m.duration.Record(ctx, time.Since(start).Seconds(), set)
			m.requests.Add(ctx, 1, set)
			m.size.Record(ctx, rec.written, set)
		})
	}
}

const unmatchedRoute = "unmatched"

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
