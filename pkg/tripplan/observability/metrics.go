package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/randalmurphal/tripplan"

// MetricsRecorder records planner metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordOperation records an operation transition (executed, failed,
	// undone) and how long it took.
	RecordOperation(ctx context.Context, kind, status string, duration time.Duration)

	// RecordValidation records one validation chain run.
	RecordValidation(ctx context.Context, kind string, success bool, handlers int)

	// RecordDelivery records delivery of an event to one subscriber.
	RecordDelivery(ctx context.Context, eventType string, failed bool)

	// RecordRanking records a ranking or estimation run.
	RecordRanking(ctx context.Context, strategy string, candidates int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	operations        metric.Int64Counter
	operationLatency  metric.Float64Histogram
	validations       metric.Int64Counter
	validationHandler metric.Int64Histogram
	deliveries        metric.Int64Counter
	rankings          metric.Int64Counter
	rankingLatency    metric.Float64Histogram
	rankingSize       metric.Int64Histogram
}

func newOtelMetrics(mp metric.MeterProvider) (*otelMetrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &otelMetrics{}
	var err error

	if m.operations, err = meter.Int64Counter("tripplan.operation.count",
		metric.WithDescription("Number of operation transitions"),
	); err != nil {
		return nil, err
	}
	if m.operationLatency, err = meter.Float64Histogram("tripplan.operation.latency_ms",
		metric.WithDescription("Operation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.validations, err = meter.Int64Counter("tripplan.validation.count",
		metric.WithDescription("Number of validation chain runs"),
	); err != nil {
		return nil, err
	}
	if m.validationHandler, err = meter.Int64Histogram("tripplan.validation.handlers",
		metric.WithDescription("Handlers run per validation"),
	); err != nil {
		return nil, err
	}
	if m.deliveries, err = meter.Int64Counter("tripplan.event.deliveries",
		metric.WithDescription("Number of event deliveries to subscribers"),
	); err != nil {
		return nil, err
	}
	if m.rankings, err = meter.Int64Counter("tripplan.ranking.count",
		metric.WithDescription("Number of ranking runs"),
	); err != nil {
		return nil, err
	}
	if m.rankingLatency, err = meter.Float64Histogram("tripplan.ranking.latency_ms",
		metric.WithDescription("Ranking latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.rankingSize, err = meter.Int64Histogram("tripplan.ranking.candidates",
		metric.WithDescription("Candidates per ranking run"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses the global OTel
// meter provider. If initialization fails, returns a no-op recorder.
//
// Configure the provider before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	return NewMetricsRecorderWith(otel.GetMeterProvider())
}

// NewMetricsRecorderWith returns a MetricsRecorder backed by mp.
func NewMetricsRecorderWith(mp metric.MeterProvider) MetricsRecorder {
	m, err := newOtelMetrics(mp)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// RecordOperation records an operation transition.
func (m *otelMetrics) RecordOperation(ctx context.Context, kind, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	m.operations.Add(ctx, 1, attrs)
	m.operationLatency.Record(ctx, ms(duration), attrs)
}

// RecordValidation records a validation chain run.
func (m *otelMetrics) RecordValidation(ctx context.Context, kind string, success bool, handlers int) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", success),
	)
	m.validations.Add(ctx, 1, attrs)
	m.validationHandler.Record(ctx, int64(handlers), attrs)
}

// RecordDelivery records an event delivery.
func (m *otelMetrics) RecordDelivery(ctx context.Context, eventType string, failed bool) {
	m.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("failed", failed),
	))
}

// RecordRanking records a ranking run.
func (m *otelMetrics) RecordRanking(ctx context.Context, strategy string, candidates int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("strategy", strategy))
	m.rankings.Add(ctx, 1, attrs)
	m.rankingLatency.Record(ctx, ms(duration), attrs)
	m.rankingSize.Record(ctx, int64(candidates), attrs)
}
