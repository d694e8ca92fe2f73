package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMiddleware_PassesThrough(t *testing.T) {
	m, _ := newTestMetrics(t)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/evaluate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/align", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	rm := collect(t, reader)
	met := findMetric(rm, "zylo.http.request.duration")
	if met == nil {
		t.Fatal("http request duration metric not recorded")
	}
}

// durationAttr digs the named string attribute out of the first data point
// of the request duration histogram.
func durationAttr(t *testing.T, rm metricdata.ResourceMetrics, key string) (string, bool) {
	t.Helper()
	met := findMetric(rm, "zylo.http.request.duration")
	if met == nil {
		t.Fatal("http request duration metric not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("http request duration metric has no data points")
	}
	for _, kv := range hist.DataPoints[0].Attributes.ToSlice() {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m, reader := newTestMetrics(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/align", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(m)(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/align", nil))

	got, ok := durationAttr(t, collect(t, reader), "route")
	if !ok {
		t.Fatal("route attribute not recorded")
	}
	if want := "POST /v1/align"; got != want {
		t.Errorf("route = %q, want %q", got, want)
	}
}

func TestMiddleware_UnmatchedRouteFallsBackToPath(t *testing.T) {
	m, reader := newTestMetrics(t)

	// A bare handler never sets the route pattern, like a mux 404 would.
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	got, ok := durationAttr(t, collect(t, reader), "route")
	if !ok {
		t.Fatal("route attribute not recorded")
	}
	if want := "GET /no/such/route"; got != want {
		t.Errorf("route = %q, want %q", got, want)
	}
}

func TestMiddleware_DefaultStatusIsOK(t *testing.T) {
	m, _ := newTestMetrics(t)

	// Handler that writes a body without calling WriteHeader.
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
