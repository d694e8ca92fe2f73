package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope under which all Zylo spans are
// recorded.
const tracerName = "github.com/arnavam/zylo"

// Tracer returns the service tracer from the globally registered provider.
// Safe to call before [InitProvider] has run; spans are no-ops until a real
// provider is installed.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span named name as a child of the span in ctx, if any.
// The caller owns the returned span and must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the hex trace ID of the active span in ctx, or the
// empty string when ctx carries no trace. This is the value the HTTP
// middleware hands back to clients in X-Correlation-ID.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger bound to the trace and span IDs in ctx,
// so warnings emitted deep in an evaluation can be joined back to the request
// that produced them. Without an active span the default logger is returned
// unchanged.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
