package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arnavam/zylo/internal/health"
	"github.com/arnavam/zylo/internal/history"
	"github.com/arnavam/zylo/internal/observe"
	"github.com/arnavam/zylo/internal/practice"
	"github.com/arnavam/zylo/internal/pronounce"
	"github.com/arnavam/zylo/internal/server"
	"github.com/arnavam/zylo/pkg/audio"
	acousticmock "github.com/arnavam/zylo/pkg/provider/acoustic/mock"
	g2pmock "github.com/arnavam/zylo/pkg/provider/g2p/mock"
)

// memStore is an in-memory history.Store for handler tests.
type memStore struct {
	mu       sync.Mutex
	attempts []history.Attempt
}

func (m *memStore) Save(_ context.Context, a *history.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.attempts) + 1)
	a.CreatedAt = time.Now()
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *memStore) Recent(_ context.Context, learnerID string, limit int) ([]history.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []history.Attempt{}
	for i := len(m.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if learnerID == "" || m.attempts[i].LearnerID == learnerID {
			out = append(out, m.attempts[i])
		}
	}
	return out, nil
}

func (m *memStore) SimilarAttempts(context.Context, []float32, int) ([]history.SimilarAttempt, error) {
	return []history.SimilarAttempt{}, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close()                     {}

var _ history.Store = (*memStore)(nil)

// newTestHandler builds a handler around mock providers and an in-memory
// store. Both phoneme paths return the same sequence so evaluations score
// 1.0.
func newTestHandler(t *testing.T, store history.Store) http.Handler {
	t.Helper()
	phonemes := []string{"h", "ə", "l", "oʊ"}
	ev := pronounce.NewEvaluator(
		&acousticmock.Provider{PhonemesResult: phonemes},
		&g2pmock.Provider{PhonemesResult: phonemes},
		nil,
	)
	srv := server.New(ev, practice.New(), store, observe.DefaultMetrics(), health.New())
	return srv.Handler()
}

// evaluateRequest builds a multipart POST /v1/evaluate request with a valid
// WAV payload.
func evaluateRequest(t *testing.T, referenceText string) *http.Request {
	t.Helper()
	wave := audio.Waveform{
		Samples:    []float32{0.1, -0.2, 0.3, -0.4},
		SampleRate: audio.ModelSampleRate,
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if referenceText != "" {
		if err := mw.WriteField("reference_text", referenceText); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("audio", "attempt.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if err := audio.EncodeWAV(wave, fw); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestEvaluate_OK(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	handler := newTestHandler(t, store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, evaluateRequest(t, "hello"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var resp struct {
		SimilarityScore float64 `json:"similarity_score"`
		Status          string  `json:"status"`
		AttemptID       int64   `json:"attempt_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.SimilarityScore != 1.0 {
		t.Errorf("similarity_score = %v, want 1.0", resp.SimilarityScore)
	}
	if resp.Status != "correct" {
		t.Errorf("status = %q, want %q", resp.Status, "correct")
	}
	if resp.AttemptID == 0 {
		t.Error("attempt_id not set; attempt was not persisted")
	}
	if len(store.attempts) != 1 {
		t.Errorf("store holds %d attempts, want 1", len(store.attempts))
	}
}

func TestEvaluate_MissingReferenceText(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, evaluateRequest(t, ""))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestEvaluate_RejectsNonWAV(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("reference_text", "hello")
	fw, _ := mw.CreateFormFile("audio", "attempt.mp3")
	fw.Write([]byte("ID3 definitely not a wav"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	handler := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnsupportedMediaType)
	}
}

func TestAlign_OK(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)
	body := strings.NewReader(`{"original": "The quick brown fox", "spoken": "The quick fox"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/align", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var resp struct {
		Feedback []practice.WordFeedback `json:"feedback"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Feedback) != 4 {
		t.Fatalf("got %d feedback entries, want 4", len(resp.Feedback))
	}
	if resp.Feedback[2].Status != practice.WordMissed {
		t.Errorf("feedback[2].Status = %q, want %q", resp.Feedback[2].Status, practice.WordMissed)
	}
}

func TestAlign_MissingOriginal(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/align", strings.NewReader(`{"spoken": "hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHistory_OK(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	handler := newTestHandler(t, store)

	// Seed via an evaluation with a learner ID.
	req := evaluateRequest(t, "hello")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed evaluation failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Attempts []history.Attempt `json:"attempts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Attempts) != 1 {
		t.Errorf("got %d attempts, want 1", len(resp.Attempts))
	}
}

func TestHistory_NotConfigured(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestHistory_InvalidLimit(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &memStore{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history?limit=-3", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
