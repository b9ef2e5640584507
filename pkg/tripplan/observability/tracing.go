package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartOperationSpan starts a span for executing one operation.
	StartOperationSpan(ctx context.Context, kind, opID string) (context.Context, trace.Span)

	// StartUndoSpan starts a span for undoing one operation.
	StartUndoSpan(ctx context.Context, kind, opID string) (context.Context, trace.Span)

	// StartRankingSpan starts a span for a ranking or estimation run.
	StartRankingSpan(ctx context.Context, strategy string, candidates int) (context.Context, trace.Span)

	// StartSagaSpan starts a span covering a compound action.
	StartSagaSpan(ctx context.Context, saga, executionID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses the global OTel tracer
// provider. Configure the provider before calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return NewSpanManagerWith(otel.GetTracerProvider())
}

// NewSpanManagerWith returns a SpanManager backed by tp.
func NewSpanManagerWith(tp trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: tp.Tracer(instrumentationName)}
}

func (m *otelSpanManager) StartOperationSpan(ctx context.Context, kind, opID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tripplan.operation."+kind,
		trace.WithAttributes(
			attribute.String("operation.kind", kind),
			attribute.String("operation.id", opID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartUndoSpan(ctx context.Context, kind, opID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tripplan.undo."+kind,
		trace.WithAttributes(
			attribute.String("operation.kind", kind),
			attribute.String("operation.id", opID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartRankingSpan(ctx context.Context, strategy string, candidates int) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tripplan.rank",
		trace.WithAttributes(
			attribute.String("ranking.strategy", strategy),
			attribute.Int("ranking.candidates", candidates),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartSagaSpan(ctx context.Context, saga, executionID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tripplan.saga."+saga,
		trace.WithAttributes(
			attribute.String("saga.name", saga),
			attribute.String("saga.execution_id", executionID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
