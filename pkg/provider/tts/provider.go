// Package tts defines the Provider interface for Text-to-Speech backends.
//
// In this system TTS exists to manufacture reference audio: the reference
// text is synthesised, run through the same acoustic model as the learner's
// recording, and the two frame-probability matrices are compared. Synthesis
// is therefore a batch operation — one utterance in, one waveform out — and
// the waveform must be compatible with the acoustic model's input format
// (mono, resampled to [audio.ModelSampleRate] by the implementation).
//
// Implementations must be safe for concurrent use; multiple evaluations may
// synthesise in parallel.
package tts

import (
	"context"

	"github.com/arnavam/zylo/pkg/audio"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize produces spoken audio for text, conditioned for acoustic
	// inference (mono, model sample rate). Returns an error if the backend
	// cannot synthesise; callers treat that as a recoverable degradation of
	// the probabilistic scoring path, not a fatal failure.
	Synthesize(ctx context.Context, text string) (audio.Waveform, error)
}
