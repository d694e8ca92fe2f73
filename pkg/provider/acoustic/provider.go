// Package acoustic defines the Provider interface for phoneme-level acoustic
// model backends.
//
// An acoustic provider wraps a neural model (e.g., a wav2vec2 CTC model
// served out of process) and exposes two views of the same inference: the
// decoded phoneme sequence, and the per-frame probability distributions over
// the phoneme vocabulary that the decoding collapsed. Both must come from the
// same underlying model with a fixed vocabulary and frame rate, or
// frame-matrix comparisons between utterances are meaningless.
//
// Implementations must be safe for concurrent use; evaluations of different
// utterances may run fully in parallel.
package acoustic

import (
	"context"
	"fmt"

	"github.com/arnavam/zylo/pkg/audio"
)

// FrameProbabilities is an ordered sequence of frames, each a probability
// distribution over the model's phoneme vocabulary. Frame counts vary with
// utterance duration; the vector width is fixed per model.
type FrameProbabilities [][]float64

// Frames returns the number of frames in the matrix.
func (p FrameProbabilities) Frames() int { return len(p) }

// VocabSize returns the width of the probability vectors, or 0 when the
// matrix is empty.
func (p FrameProbabilities) VocabSize() int {
	if len(p) == 0 {
		return 0
	}
	return len(p[0])
}

// Validate checks that every frame has the same vector width and that the
// matrix is non-empty.
func (p FrameProbabilities) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("acoustic: probability matrix has no frames")
	}
	width := len(p[0])
	if width == 0 {
		return fmt.Errorf("acoustic: probability matrix has zero-width frames")
	}
	for i, frame := range p {
		if len(frame) != width {
			return fmt.Errorf("acoustic: frame %d has width %d, want %d", i, len(frame), width)
		}
	}
	return nil
}

// Provider is the abstraction over any phoneme-level acoustic model backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Phonemes runs inference on wave and returns the decoded phoneme
	// sequence. The sequence may be empty for silent audio; that is not an
	// error. The waveform should be mono at [audio.ModelSampleRate].
	Phonemes(ctx context.Context, wave audio.Waveform) ([]string, error)

	// FrameProbabilities runs inference on wave and returns the per-frame
	// probability distributions over the model's phoneme vocabulary.
	FrameProbabilities(ctx context.Context, wave audio.Waveform) (FrameProbabilities, error)
}
