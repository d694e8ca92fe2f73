package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"acoustic": {"wav2vec2"},
	"g2p":      {"espeak"},
	"tts":      {"coqui", "espeak"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("acoustic", cfg.Providers.Acoustic.Name)
	validateProviderName("g2p", cfg.Providers.G2P.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)

	// Provider availability
	if cfg.Providers.Acoustic.Name == "" {
		errs = append(errs, errors.New("providers.acoustic.name is required"))
	}
	if cfg.Providers.G2P.Name == "" {
		errs = append(errs, errors.New("providers.g2p.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; probabilistic scoring will be unavailable")
	}
	if cfg.Providers.TTSFallback.Name != "" && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts_fallback is set but providers.tts is not"))
	}

	// Scoring
	sc := cfg.Scoring
	if sc.ProbabilityWeight < 0 || sc.SymbolWeight < 0 {
		errs = append(errs, errors.New("scoring weights must be non-negative"))
	}
	if sc.CorrectThreshold < 0 || sc.CorrectThreshold > 1 {
		errs = append(errs, fmt.Errorf("scoring.correct_threshold %.2f is out of range [0, 1]", sc.CorrectThreshold))
	}
	if sc.AlmostThreshold < 0 || sc.AlmostThreshold > 1 {
		errs = append(errs, fmt.Errorf("scoring.almost_threshold %.2f is out of range [0, 1]", sc.AlmostThreshold))
	}
	if sc.CorrectThreshold != 0 && sc.AlmostThreshold != 0 && sc.AlmostThreshold > sc.CorrectThreshold {
		errs = append(errs, fmt.Errorf("scoring.almost_threshold %.2f exceeds correct_threshold %.2f", sc.AlmostThreshold, sc.CorrectThreshold))
	}

	// Practice
	pr := cfg.Practice
	if pr.ExactWindow < 0 || pr.FuzzyWindow < 0 {
		errs = append(errs, errors.New("practice windows must be non-negative"))
	}
	if pr.FuzzyThreshold < 0 || pr.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("practice.fuzzy_threshold %.2f is out of range [0, 1]", pr.FuzzyThreshold))
	}

	// History
	if cfg.History.PostgresDSN != "" && cfg.History.VocabSize <= 0 {
		slog.Warn("history.postgres_dsn is set but history.vocab_size is not; pronunciation profiles will not be stored")
	}
	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; attempt history will not be persisted")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
