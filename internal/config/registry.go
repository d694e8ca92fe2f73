package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arnavam/zylo/pkg/provider/acoustic"
	"github.com/arnavam/zylo/pkg/provider/g2p"
	"github.com/arnavam/zylo/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	acoustic map[string]func(ProviderEntry) (acoustic.Provider, error)
	g2p      map[string]func(ProviderEntry) (g2p.Provider, error)
	tts      map[string]func(ProviderEntry) (tts.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		acoustic: make(map[string]func(ProviderEntry) (acoustic.Provider, error)),
		g2p:      make(map[string]func(ProviderEntry) (g2p.Provider, error)),
		tts:      make(map[string]func(ProviderEntry) (tts.Provider, error)),
	}
}

// RegisterAcoustic registers an acoustic provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAcoustic(name string, factory func(ProviderEntry) (acoustic.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acoustic[name] = factory
}

// RegisterG2P registers a grapheme-to-phoneme provider factory under name.
func (r *Registry) RegisterG2P(name string, factory func(ProviderEntry) (g2p.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.g2p[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// CreateAcoustic instantiates an acoustic provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateAcoustic(entry ProviderEntry) (acoustic.Provider, error) {
	r.mu.RLock()
	factory, ok := r.acoustic[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: acoustic/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateG2P instantiates a G2P provider using the factory registered under entry.Name.
func (r *Registry) CreateG2P(entry ProviderEntry) (g2p.Provider, error) {
	r.mu.RLock()
	factory, ok := r.g2p[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: g2p/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
