// Package mock provides a test double for the g2p.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/arnavam/zylo/pkg/provider/g2p"
)

// Call records a single invocation of Phonemes.
type Call struct {
	// Ctx is the context passed to Phonemes.
	Ctx context.Context
	// Text is the text passed to Phonemes.
	Text string
}

// Provider is a mock implementation of g2p.Provider.
type Provider struct {
	mu sync.Mutex

	// PhonemesResult is returned by Phonemes.
	PhonemesResult []string

	// PhonemesErr, if non-nil, is returned by Phonemes.
	PhonemesErr error

	// PhonemesCalls records every call to Phonemes in order.
	PhonemesCalls []Call
}

// Phonemes records the call and returns PhonemesResult, PhonemesErr.
func (p *Provider) Phonemes(ctx context.Context, text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PhonemesCalls = append(p.PhonemesCalls, Call{Ctx: ctx, Text: text})
	return p.PhonemesResult, p.PhonemesErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PhonemesCalls = nil
}

// Ensure Provider implements g2p.Provider at compile time.
var _ g2p.Provider = (*Provider)(nil)
