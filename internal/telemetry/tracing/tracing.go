// Package tracing provides a minimal span abstraction used to correlate log
// lines and to mark collector/flush boundaries, adapted from the internal
// "simple span" tracer in the teacher repo. A real OTLP exporter can be
// bolted on behind the same Tracer interface without touching call sites.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Span is the subset of span behavior callers in this repo need.
type Span interface {
	End()
	SetAttribute(key string, value any)
	TraceID() string
	SpanID() string
}

// Tracer starts spans. Noop returns true when tracing is disabled.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	Noop() bool
}

var tracerName = "distressscan"

type otelTracer struct{ tr trace.Tracer }

// NewTracer returns a Tracer backed by the global OpenTelemetry TracerProvider.
// Call otel.SetTracerProvider in main() before use; with no provider configured
// the global default is a no-op provider, so this is safe without an exporter.
func NewTracer() Tracer {
	return &otelTracer{tr: otel.Tracer(tracerName)}
}

func (t *otelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, sp := t.tr.Start(ctx, name)
	return ctx, &otelSpan{sp: sp, start: time.Now()}
}

func (t *otelTracer) Noop() bool { return false }

type otelSpan struct {
	sp    trace.Span
	start time.Time
}

func (s *otelSpan) End()                           { s.sp.End() }
func (s *otelSpan) SetAttribute(key string, v any) { s.sp.SetAttributes(attrFor(key, v)) }
func (s *otelSpan) TraceID() string                { return s.sp.SpanContext().TraceID().String() }
func (s *otelSpan) SpanID() string                 { return s.sp.SpanContext().SpanID().String() }

// ExtractIDs pulls the trace/span id off whatever span is active on ctx, if any.
func ExtractIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
