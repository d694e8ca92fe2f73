package wav2vec_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/acoustic/wav2vec"
)

func testWave() audio.Waveform {
	return audio.Waveform{Samples: []float32{0, 0.1, -0.1, 0.2}, SampleRate: 16000}
}

func TestPhonemes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/phonemes" {
			t.Errorf("path = %q, want /phonemes", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		f, _, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio form file: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if _, err := audio.DecodeWAV(f); err != nil {
			t.Errorf("uploaded audio is not a valid WAV: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"phonemes": []string{"f", "ɒ", "k", "s"}})
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Phonemes(context.Background(), testWave())
	if err != nil {
		t.Fatalf("Phonemes: %v", err)
	}
	want := []string{"f", "ɒ", "k", "s"}
	if len(got) != len(want) {
		t.Fatalf("Phonemes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Phonemes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFrameProbabilities(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/frame_probabilities" {
			t.Errorf("path = %q, want /frame_probabilities", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"frames":     [][]float64{{0.9, 0.1}, {0.2, 0.8}},
			"vocab_size": 2,
		})
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.FrameProbabilities(context.Background(), testWave())
	if err != nil {
		t.Fatalf("FrameProbabilities: %v", err)
	}
	if got.Frames() != 2 || got.VocabSize() != 2 {
		t.Errorf("matrix = %dx%d, want 2x2", got.Frames(), got.VocabSize())
	}
}

func TestFrameProbabilities_RejectsRaggedMatrix(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"frames": [][]float64{{0.9, 0.1}, {1.0}},
		})
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.FrameProbabilities(context.Background(), testWave()); err == nil {
		t.Error("FrameProbabilities accepted a ragged matrix, want error")
	}
}

func TestServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Phonemes(context.Background(), testWave()); err == nil {
		t.Error("Phonemes: err = nil on 503 response, want error")
	}
}

func TestEmptyWaveformRejected(t *testing.T) {
	t.Parallel()

	p, err := wav2vec.New("http://localhost:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Phonemes(context.Background(), audio.Waveform{}); err == nil {
		t.Error("Phonemes accepted an empty waveform, want error")
	}
}

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := wav2vec.New(""); err == nil {
		t.Error("New(\"\"): err = nil, want error")
	}
}
