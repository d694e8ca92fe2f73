// Package espeakng provides a tts.Provider backed by the espeak-ng binary.
//
// Synthesis shells out per utterance with `-w <tmpfile>` and decodes the
// resulting WAV. espeak-ng outputs 22 050 Hz mono by default; the waveform is
// resampled to the acoustic model rate and peak-normalised before being
// returned. The robotic timbre is irrelevant here — the synthesised audio is
// consumed by the acoustic model as a phonetic reference, never played to the
// learner.
package espeakng

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/tts"
)

const (
	defaultBinary = "espeak-ng"
	defaultVoice  = "en-us"
	defaultRate   = 150
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBinary sets the espeak-ng executable path. Defaults to "espeak-ng".
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// WithVoice sets the espeak-ng voice/language. Defaults to "en-us".
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
}

// WithRate sets the speaking rate in words per minute. Defaults to 150,
// a deliberate reading pace.
func WithRate(wpm int) Option {
	return func(p *Provider) { p.rate = wpm }
}

// Provider synthesises speech by shelling out to espeak-ng.
// It is read-only after construction and safe for concurrent use.
type Provider struct {
	binary string
	voice  string
	rate   int
}

// New returns a Provider configured with the supplied options.
func New(opts ...Option) *Provider {
	p := &Provider{
		binary: defaultBinary,
		voice:  defaultVoice,
		rate:   defaultRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize produces audio for text, resampled to the model rate and
// peak-normalised.
func (p *Provider) Synthesize(ctx context.Context, text string) (audio.Waveform, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Waveform{}, errors.New("espeakng: empty text")
	}

	tmp, err := os.CreateTemp("", "zylo-tts-*.wav")
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("espeakng: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, p.binary,
		"-w", filepath.Clean(tmpPath),
		"-s", strconv.Itoa(p.rate),
		"-v", p.voice,
		text,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return audio.Waveform{}, fmt.Errorf("espeakng: synthesis failed: %s: %w", strings.TrimSpace(stderr.String()), err)
		}
		return audio.Waveform{}, fmt.Errorf("espeakng: run %q: %w", p.binary, err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("espeakng: open synthesised audio: %w", err)
	}
	defer f.Close()

	wave, err := audio.DecodeWAV(f)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("espeakng: decode synthesised audio: %w", err)
	}
	return audio.Condition(wave), nil
}
