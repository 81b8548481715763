package pathgen

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/hitchpath/hitchpath/internal/pathgen"

// Recorder receives one observation per generation attempt.
type Recorder interface {
	RecordGeneration(kind string, duration time.Duration, steps int, err error)
}

// Metrics records generation latency and outcomes with OpenTelemetry.
type Metrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	steps    metric.Int64Histogram
}

// NewMetrics creates the generation instruments on mp. A nil mp uses the
// global meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"pathgen.generation.duration",
		metric.WithDescription("Duration of learning path generation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"pathgen.generation.total",
		metric.WithDescription("Total number of learning path generations"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	steps, err := meter.Int64Histogram(
		"pathgen.generation.steps",
		metric.WithDescription("Number of steps in generated paths"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{duration: duration, total: total, steps: steps}, nil
}

// RecordGeneration records one attempt. kind is "preferences" or "topic".
func (m *Metrics) RecordGeneration(kind string, d time.Duration, steps int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("generation.kind", kind),
		attribute.String("generation.outcome", outcome(err)),
	}
	// The request context may already be canceled.
	ctx := context.Background()
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	m.total.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err == nil {
		m.steps.Record(ctx, int64(steps), metric.WithAttributes(attrs[0]))
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Reason
	}
	return "error"
}

type nopRecorder struct{}

func (nopRecorder) RecordGeneration(string, time.Duration, int, error) {}
