// Command zylo is the main entry point for the Zylo pronunciation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavam/zylo/internal/app"
	"github.com/arnavam/zylo/internal/config"
	"github.com/arnavam/zylo/internal/observe"
	"github.com/arnavam/zylo/pkg/provider/acoustic"
	"github.com/arnavam/zylo/pkg/provider/acoustic/wav2vec"
	"github.com/arnavam/zylo/pkg/provider/g2p"
	g2pespeak "github.com/arnavam/zylo/pkg/provider/g2p/espeakng"
	"github.com/arnavam/zylo/pkg/provider/tts"
	"github.com/arnavam/zylo/pkg/provider/tts/coqui"
	ttsespeak "github.com/arnavam/zylo/pkg/provider/tts/espeakng"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "zylo: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "zylo: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("zylo starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "zylo",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Acoustic ──────────────────────────────────────────────────────────────

	reg.RegisterAcoustic("wav2vec2", func(entry config.ProviderEntry) (acoustic.Provider, error) {
		var opts []wav2vec.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, wav2vec.WithTimeout(d))
		}
		return wav2vec.New(entry.BaseURL, opts...)
	})

	// ── G2P ───────────────────────────────────────────────────────────────────

	reg.RegisterG2P("espeak", func(entry config.ProviderEntry) (g2p.Provider, error) {
		var opts []g2pespeak.Option
		if entry.Voice != "" {
			opts = append(opts, g2pespeak.WithVoice(entry.Voice))
		}
		if bin := optString(entry.Options, "binary"); bin != "" {
			opts = append(opts, g2pespeak.WithBinary(bin))
		}
		return g2pespeak.New(opts...), nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if speaker := optString(entry.Options, "speaker"); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		return coqui.New(entry.BaseURL, opts...), nil
	})

	reg.RegisterTTS("espeak", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttsespeak.Option
		if entry.Voice != "" {
			opts = append(opts, ttsespeak.WithVoice(entry.Voice))
		}
		if bin := optString(entry.Options, "binary"); bin != "" {
			opts = append(opts, ttsespeak.WithBinary(bin))
		}
		if rate := optInt(entry.Options, "rate"); rate > 0 {
			opts = append(opts, ttsespeak.WithRate(rate))
		}
		return ttsespeak.New(opts...), nil
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	p, err := reg.CreateAcoustic(cfg.Providers.Acoustic)
	if err != nil {
		return nil, fmt.Errorf("create acoustic provider %q: %w", cfg.Providers.Acoustic.Name, err)
	}
	ps.Acoustic = p
	slog.Info("provider created", "kind", "acoustic", "name", cfg.Providers.Acoustic.Name)

	gp, err := reg.CreateG2P(cfg.Providers.G2P)
	if err != nil {
		return nil, fmt.Errorf("create g2p provider %q: %w", cfg.Providers.G2P.Name, err)
	}
	ps.G2P = gp
	slog.Info("provider created", "kind", "g2p", "name", cfg.Providers.G2P.Name)

	if name := cfg.Providers.TTS.Name; name != "" {
		t, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = t
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	if name := cfg.Providers.TTSFallback.Name; name != "" {
		t, err := reg.CreateTTS(cfg.Providers.TTSFallback)
		if err != nil {
			return nil, fmt.Errorf("create fallback tts provider %q: %w", name, err)
		}
		ps.TTSFallback = t
		slog.Info("provider created", "kind", "tts_fallback", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           Zylo — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Acoustic", cfg.Providers.Acoustic.Name)
	printProvider("G2P", cfg.Providers.G2P.Name)
	printProvider("TTS", cfg.Providers.TTS.Name)
	printProvider("TTS fallback", cfg.Providers.TTSFallback.Name)
	if cfg.History.PostgresDSN != "" {
		fmt.Printf("║  History         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name string) {
	if name == "" {
		name = "(not configured)"
	}
	if len(name) > 19 {
		name = name[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, name)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optInt extracts an integer value from a provider Options map.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// optDuration extracts a duration string (e.g. "30s") from a provider
// Options map. Returns 0 on absent or unparseable values.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("invalid duration option", "key", key, "value", s)
		return 0
	}
	return d
}
