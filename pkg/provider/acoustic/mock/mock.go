// Package mock provides a test double for the acoustic.Provider interface.
//
// Configure the response fields, then inspect the recorded calls:
//
//	p := &mock.Provider{
//	    PhonemesResult: []string{"f", "ɒ", "k", "s"},
//	}
//	got, _ := p.Phonemes(ctx, wave)
package mock

import (
	"context"
	"sync"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/acoustic"
)

// Call records a single provider invocation.
type Call struct {
	// Ctx is the context passed to the call.
	Ctx context.Context
	// Wave is the waveform passed to the call.
	Wave audio.Waveform
}

// Provider is a mock implementation of acoustic.Provider.
type Provider struct {
	mu sync.Mutex

	// PhonemesResult is returned by Phonemes.
	PhonemesResult []string

	// PhonemesErr, if non-nil, is returned by Phonemes.
	PhonemesErr error

	// FrameProbabilitiesResult is returned by FrameProbabilities.
	FrameProbabilitiesResult acoustic.FrameProbabilities

	// FrameProbabilitiesErr, if non-nil, is returned by FrameProbabilities.
	FrameProbabilitiesErr error

	// PhonemesCalls records every call to Phonemes in order.
	PhonemesCalls []Call

	// FrameProbabilitiesCalls records every call to FrameProbabilities in order.
	FrameProbabilitiesCalls []Call
}

// Phonemes records the call and returns PhonemesResult, PhonemesErr.
func (p *Provider) Phonemes(ctx context.Context, wave audio.Waveform) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PhonemesCalls = append(p.PhonemesCalls, Call{Ctx: ctx, Wave: wave})
	return p.PhonemesResult, p.PhonemesErr
}

// FrameProbabilities records the call and returns FrameProbabilitiesResult,
// FrameProbabilitiesErr.
func (p *Provider) FrameProbabilities(ctx context.Context, wave audio.Waveform) (acoustic.FrameProbabilities, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FrameProbabilitiesCalls = append(p.FrameProbabilitiesCalls, Call{Ctx: ctx, Wave: wave})
	return p.FrameProbabilitiesResult, p.FrameProbabilitiesErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PhonemesCalls = nil
	p.FrameProbabilitiesCalls = nil
}

// Ensure Provider implements acoustic.Provider at compile time.
var _ acoustic.Provider = (*Provider)(nil)
