// Package server exposes the evaluation pipeline as an HTTP JSON API.
//
// Routes:
//
//	POST /v1/evaluate  — multipart form: "audio" (WAV file), "reference_text",
//	                     optional "learner_id". Returns the full score result.
//	POST /v1/align     — JSON {"original": ..., "spoken": ...}. Returns
//	                     per-word reading feedback.
//	GET  /v1/history   — query params "learner_id", "limit". Returns recent
//	                     attempts, most recent first.
//	GET  /healthz, /readyz, /metrics
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnavam/zylo/internal/health"
	"github.com/arnavam/zylo/internal/history"
	"github.com/arnavam/zylo/internal/observe"
	"github.com/arnavam/zylo/internal/practice"
	"github.com/arnavam/zylo/internal/pronounce"
	"github.com/arnavam/zylo/pkg/audio"
)

// maxUploadBytes caps the multipart form size for /v1/evaluate. A minute of
// 16 kHz mono PCM16 is under 2 MiB, so 16 MiB leaves ample headroom.
const maxUploadBytes = 16 << 20

// similarLimit is how many acoustically similar past attempts are attached
// to an evaluate response.
const similarLimit = 5

// Server routes HTTP requests to the evaluator, the word aligner, and the
// attempt history. Construct with [New]; safe for concurrent use.
type Server struct {
	evaluator *pronounce.Evaluator
	aligner   *practice.Aligner
	store     history.Store // nil when persistence is disabled
	metrics   *observe.Metrics
	health    *health.Handler
}

// New creates a Server. store may be nil, which disables the history
// endpoint and attempt persistence.
func New(ev *pronounce.Evaluator, al *practice.Aligner, store history.Store, m *observe.Metrics, h *health.Handler) *Server {
	return &Server{
		evaluator: ev,
		aligner:   al,
		store:     store,
		metrics:   m,
		health:    h,
	}
}

// Handler returns the fully wired HTTP handler, including health endpoints,
// the Prometheus scrape endpoint, and the observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /v1/align", s.handleAlign)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

// evaluateResponse is the JSON body for POST /v1/evaluate.
type evaluateResponse struct {
	*pronounce.Result
	AttemptID       int64                    `json:"attempt_id,omitempty"`
	SimilarAttempts []history.SimilarAttempt `json:"similar_attempts,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	referenceText := r.FormValue("reference_text")
	if referenceText == "" {
		writeError(w, http.StatusBadRequest, "reference_text is required")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	wave, err := audio.DecodeWAV(file)
	if err != nil {
		if errors.Is(err, audio.ErrNotWAV) {
			writeError(w, http.StatusUnsupportedMediaType, "audio must be a WAV file")
			return
		}
		writeError(w, http.StatusBadRequest, "decode audio: "+err.Error())
		return
	}
	wave = audio.Condition(wave)

	result, err := s.evaluator.Evaluate(r.Context(), referenceText, wave)
	if err != nil {
		switch {
		case errors.Is(err, pronounce.ErrEmptyReference), errors.Is(err, pronounce.ErrEmptyAudio):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			observe.Logger(r.Context()).Error("evaluation failed", "error", err)
			writeError(w, http.StatusBadGateway, "evaluation failed")
		}
		return
	}

	resp := evaluateResponse{Result: result}
	if s.store != nil {
		resp.AttemptID, resp.SimilarAttempts = s.persistAttempt(r, result)
	}

	writeJSON(w, http.StatusOK, resp)
}

// persistAttempt saves the result and looks up acoustically similar past
// attempts. Persistence is best-effort: failures are logged and the learner
// still receives the score.
func (s *Server) persistAttempt(r *http.Request, result *pronounce.Result) (int64, []history.SimilarAttempt) {
	ctx := r.Context()
	log := observe.Logger(ctx)

	var similar []history.SimilarAttempt
	if result.Profile != nil {
		var err error
		similar, err = s.store.SimilarAttempts(ctx, result.Profile, similarLimit)
		if err != nil {
			log.Warn("similar attempt lookup failed", "error", err)
			similar = nil
		}
	}

	attempt := &history.Attempt{
		LearnerID:        r.FormValue("learner_id"),
		ReferenceText:    result.ReferenceText,
		ExpectedPhonemes: result.ExpectedPhonemes,
		SpokenPhonemes:   result.SpokenPhonemes,
		SymbolScore:      result.SymbolScore,
		ProbabilityScore: result.ProbabilityScore,
		SimilarityScore:  result.SimilarityScore,
		Status:           result.Status,
		Profile:          result.Profile,
	}
	if err := s.store.Save(ctx, attempt); err != nil {
		log.Warn("saving attempt failed", "error", err)
		return 0, similar
	}
	return attempt.ID, similar
}

// alignRequest is the JSON body for POST /v1/align.
type alignRequest struct {
	Original string `json:"original"`
	Spoken   string `json:"spoken"`
}

// alignResponse is the JSON body for POST /v1/align.
type alignResponse struct {
	Feedback []practice.WordFeedback `json:"feedback"`
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Original == "" {
		writeError(w, http.StatusBadRequest, "original is required")
		return
	}

	feedback := s.aligner.AlignWords(req.Original, req.Spoken)
	writeJSON(w, http.StatusOK, alignResponse{Feedback: feedback})
}

// historyResponse is the JSON body for GET /v1/history.
type historyResponse struct {
	Attempts []history.Attempt `json:"attempts"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "history persistence is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be an integer in [1, 200]")
			return
		}
		limit = n
	}

	attempts, err := s.store.Recent(r.Context(), r.URL.Query().Get("learner_id"), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("history lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Attempts: attempts})
}

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}
