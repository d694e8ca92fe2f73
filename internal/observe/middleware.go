package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// responseTap wraps [http.ResponseWriter] to observe what the inner handler
// sent: the status code and the number of body bytes written.
type responseTap struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (t *responseTap) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTap) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += int64(n)
	return n, err
}

// Middleware instruments every request served beneath it. It continues any
// W3C trace context carried in the request headers, opens a server span,
// records the latency histogram, and emits one completion log line. The trace
// ID is echoed back in the X-Correlation-ID response header so a client can
// quote it when reporting a failed evaluation.
//
// The metric route attribute and the final span name use the mux route
// pattern (e.g. "POST /v1/evaluate") rather than the raw URL path, which
// keeps the label set bounded no matter what paths clients probe. Requests
// that match no route fall back to the method and raw path.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if cid := CorrelationID(ctx); cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			tap := &responseTap{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(ctx)
			next.ServeHTTP(tap, r)

			// The mux fills in r.Pattern while routing, so the matched route
			// is only known once the handler has run.
			route := r.Pattern
			if route == "" {
				route = r.Method + " " + r.URL.Path
			} else {
				span.SetName(route)
			}

			elapsed := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("route", route),
					attribute.Int("status", tap.status),
				),
			)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(tap.status),
			)

			slog.LogAttrs(ctx, slog.LevelInfo, "request served",
				slog.String("route", route),
				slog.Int("status", tap.status),
				slog.Int64("bytes", tap.bytes),
				slog.Duration("duration", elapsed),
				slog.String("trace_id", CorrelationID(ctx)),
			)
		})
	}
}
