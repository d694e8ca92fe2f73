// Package espeakng provides a g2p.Provider backed by the espeak-ng binary.
//
// espeak-ng is invoked per conversion with `-q --ipa=3`, which suppresses
// audio output and prints the IPA transcription with phonemes separated by
// underscores and words by spaces. The output is split into the flat phoneme
// sequence the scoring engine consumes.
//
// The binary must be on PATH (or configured via WithBinary). Each call spawns
// a short-lived subprocess; espeak-ng converts a sentence in single-digit
// milliseconds, so no pooling is needed.
package espeakng

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/arnavam/zylo/pkg/provider/g2p"
)

const (
	defaultBinary = "espeak-ng"
	defaultVoice  = "en-us"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBinary sets the espeak-ng executable path. Defaults to "espeak-ng"
// resolved via PATH.
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// WithVoice sets the espeak-ng voice/language (e.g., "en-us", "de").
// Defaults to "en-us".
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
}

// Provider converts text to phonemes by shelling out to espeak-ng.
// It is read-only after construction and safe for concurrent use.
type Provider struct {
	binary string
	voice  string
}

var _ g2p.Provider = (*Provider)(nil)

// New returns a Provider configured with the supplied options.
func New(opts ...Option) *Provider {
	p := &Provider{
		binary: defaultBinary,
		voice:  defaultVoice,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Phonemes converts text to its espeak IPA phoneme sequence.
func (p *Provider) Phonemes(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, p.binary, "-q", "--ipa=3", "-v", p.voice, text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("espeakng: g2p failed: %s: %w", strings.TrimSpace(stderr.String()), err)
		}
		return nil, fmt.Errorf("espeakng: run %q: %w", p.binary, err)
	}

	return ParseIPA(stdout.String()), nil
}

// ParseIPA splits espeak-ng `--ipa=3` output into a flat phoneme sequence.
// Phonemes are separated by underscores within a word and whitespace between
// words; stress marks are kept attached to their phoneme, matching the
// acoustic model's vocabulary.
func ParseIPA(out string) []string {
	var phonemes []string
	for _, word := range strings.Fields(out) {
		for _, ph := range strings.Split(word, "_") {
			ph = strings.TrimSpace(ph)
			if ph != "" {
				phonemes = append(phonemes, ph)
			}
		}
	}
	return phonemes
}
