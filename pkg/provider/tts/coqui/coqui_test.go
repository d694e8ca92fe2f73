package coqui_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/tts/coqui"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts" {
			t.Errorf("path = %q, want /api/tts", r.URL.Path)
		}
		if got := r.URL.Query().Get("text"); got != "hello world" {
			t.Errorf("text param = %q, want %q", got, "hello world")
		}
		if got := r.URL.Query().Get("language_id"); got != "en" {
			t.Errorf("language_id param = %q, want %q", got, "en")
		}
		// Respond with a short 22.05 kHz WAV; the client must resample it.
		var buf bytes.Buffer
		wave := audio.Waveform{Samples: make([]float32, 22050), SampleRate: 22050}
		wave.Samples[100] = 0.5
		if err := audio.EncodeWAV(wave, &buf); err != nil {
			t.Errorf("EncodeWAV: %v", err)
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := coqui.New(srv.URL)
	wave, err := p.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if wave.SampleRate != audio.ModelSampleRate {
		t.Errorf("SampleRate = %d, want %d", wave.SampleRate, audio.ModelSampleRate)
	}
	if wave.Empty() {
		t.Error("Synthesize returned an empty waveform")
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := coqui.New(srv.URL)
	if _, err := p.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("Synthesize: err = nil on 500 response, want error")
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	t.Parallel()

	p := coqui.New("http://localhost:1")
	if _, err := p.Synthesize(context.Background(), "   "); err == nil {
		t.Error("Synthesize accepted blank text, want error")
	}
}
