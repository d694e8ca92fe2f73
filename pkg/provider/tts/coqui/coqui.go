// Package coqui provides a tts.Provider backed by a standard Coqui TTS
// server (ghcr.io/coqui-ai/tts-cpu) via its REST API.
//
// Synthesis is a single GET /api/tts call with URL query parameters; the
// server returns a complete WAV which is decoded, resampled to the acoustic
// model rate, and peak-normalised. Coqui produces far more natural prosody
// than espeak-ng, which makes the synthesised reference's frame-probability
// trajectory a fairer comparison target for human speech.
//
// Typical usage:
//
//	p := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("en"),
//	    coqui.WithSpeaker("p376"),
//	)
//	wave, err := p.Synthesize(ctx, "The quick brown fox")
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/tts"
)

const (
	apiTTSEndpoint = "/api/tts"

	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the language id sent to the server for multilingual
// models. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSpeaker sets the speaker id for multi-speaker models. Empty (the
// default) lets the server use its default speaker.
func WithSpeaker(speaker string) Option {
	return func(p *Provider) { p.speaker = speaker }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements tts.Provider against a standard Coqui TTS server.
type Provider struct {
	serverURL  string
	language   string
	speaker    string
	httpClient *http.Client
}

// New creates a Provider that connects to the Coqui TTS server at serverURL
// (e.g., "http://localhost:5002").
func New(serverURL string, opts ...Option) *Provider {
	p := &Provider{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize requests synthesis of text and returns the decoded waveform,
// conditioned for acoustic inference.
func (p *Provider) Synthesize(ctx context.Context, text string) (audio.Waveform, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Waveform{}, errors.New("coqui: empty text")
	}
	if p.serverURL == "" {
		return audio.Waveform{}, errors.New("coqui: server URL not configured")
	}

	q := url.Values{}
	q.Set("text", text)
	if p.speaker != "" {
		q.Set("speaker_id", p.speaker)
	}
	if p.language != "" {
		q.Set("language_id", p.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.serverURL+apiTTSEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("coqui: create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("coqui: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return audio.Waveform{}, fmt.Errorf("coqui: server returned %d: %s", resp.StatusCode, string(body))
	}

	wave, err := audio.DecodeWAV(resp.Body)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("coqui: decode synthesised audio: %w", err)
	}
	return audio.Condition(wave), nil
}
