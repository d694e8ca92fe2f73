package resilience

import (
	"context"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/tts"
)

// SynthFallback implements [tts.Provider] with automatic failover across
// multiple synthesis backends, each guarded by its own circuit breaker.
// Used for the reference-audio path: if the primary (e.g., Coqui) is down,
// a secondary (e.g., espeak-ng) keeps the probabilistic score alive.
type SynthFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*SynthFallback)(nil)

// NewSynthFallback creates a [SynthFallback] with primary as the preferred
// backend.
func NewSynthFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *SynthFallback {
	return &SynthFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis backend.
func (f *SynthFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize produces audio for text using the first healthy backend.
func (f *SynthFallback) Synthesize(ctx context.Context, text string) (audio.Waveform, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (audio.Waveform, error) {
		return p.Synthesize(ctx, text)
	})
}
