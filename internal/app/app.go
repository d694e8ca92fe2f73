// Package app wires all Zylo subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject doubles via functional options (WithHistoryStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/arnavam/zylo/internal/config"
	"github.com/arnavam/zylo/internal/health"
	"github.com/arnavam/zylo/internal/history"
	historypg "github.com/arnavam/zylo/internal/history/postgres"
	"github.com/arnavam/zylo/internal/observe"
	"github.com/arnavam/zylo/internal/practice"
	"github.com/arnavam/zylo/internal/pronounce"
	"github.com/arnavam/zylo/internal/resilience"
	"github.com/arnavam/zylo/internal/score"
	"github.com/arnavam/zylo/internal/server"
	"github.com/arnavam/zylo/pkg/provider/acoustic"
	"github.com/arnavam/zylo/pkg/provider/g2p"
	"github.com/arnavam/zylo/pkg/provider/tts"
)

// shutdownTimeout bounds the HTTP server drain during Shutdown.
const shutdownTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	Acoustic    acoustic.Provider
	G2P         g2p.Provider
	TTS         tts.Provider
	TTSFallback tts.Provider
}

// App owns all subsystem lifetimes for the Zylo service.
type App struct {
	cfg       *config.Config
	providers *Providers

	metrics   *observe.Metrics
	store     history.Store
	evaluator *pronounce.Evaluator
	aligner   *practice.Aligner
	httpSrv   *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects a history store instead of creating one from config.
func WithHistoryStore(s history.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). The acoustic and
// G2P providers are required; TTS is optional and merely disables
// probabilistic scoring when absent.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Acoustic == nil {
		return nil, errors.New("app: acoustic provider is required")
	}
	if providers.G2P == nil {
		return nil, errors.New("app: g2p provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. History store ─────────────────────────────────────────────────
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	// ── 2. Evaluator ─────────────────────────────────────────────────────
	a.evaluator = pronounce.NewEvaluator(
		providers.Acoustic,
		providers.G2P,
		a.buildSynth(),
		a.evaluatorOptions()...,
	)

	// ── 3. Word aligner ──────────────────────────────────────────────────
	a.aligner = practice.New(a.alignerOptions()...)

	// ── 4. HTTP server ───────────────────────────────────────────────────
	srv := server.New(a.evaluator, a.aligner, a.store, a.metrics, health.New(a.checkers()...))
	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initHistory connects the PostgreSQL attempt store unless one was injected
// or persistence is disabled by config.
func (a *App) initHistory(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	dsn := a.cfg.History.PostgresDSN
	if dsn == "" {
		slog.Info("history persistence disabled")
		return nil
	}
	dims := a.cfg.History.VocabSize
	if dims <= 0 {
		slog.Warn("history.vocab_size not set; storing attempts without profiles is not possible, disabling persistence")
		return nil
	}

	store, err := historypg.NewStore(ctx, dsn, dims)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// buildSynth assembles the reference-audio synthesiser, wrapping primary and
// fallback providers in circuit-breaker failover when both are configured.
func (a *App) buildSynth() tts.Provider {
	if a.providers.TTS == nil {
		return nil
	}
	if a.providers.TTSFallback == nil {
		return a.providers.TTS
	}
	f := resilience.NewSynthFallback(a.providers.TTS, a.cfg.Providers.TTS.Name, resilience.FallbackConfig{})
	f.AddFallback(a.cfg.Providers.TTSFallback.Name, a.providers.TTSFallback)
	return f
}

// evaluatorOptions maps scoring config onto evaluator options, leaving
// defaults in place for zero values.
func (a *App) evaluatorOptions() []pronounce.Option {
	opts := []pronounce.Option{pronounce.WithMetrics(a.metrics)}

	sc := a.cfg.Scoring
	if sc.ProbabilityWeight != 0 || sc.SymbolWeight != 0 {
		opts = append(opts, pronounce.WithFusionWeights(score.FusionWeights{
			Probability: sc.ProbabilityWeight,
			Symbol:      sc.SymbolWeight,
		}))
	}
	if sc.CorrectThreshold != 0 || sc.AlmostThreshold != 0 {
		t := score.DefaultThresholds()
		if sc.CorrectThreshold != 0 {
			t.Correct = sc.CorrectThreshold
		}
		if sc.AlmostThreshold != 0 {
			t.Almost = sc.AlmostThreshold
		}
		opts = append(opts, pronounce.WithThresholds(t))
	}
	return opts
}

// alignerOptions maps practice config onto aligner options.
func (a *App) alignerOptions() []practice.Option {
	var opts []practice.Option
	pr := a.cfg.Practice
	if pr.ExactWindow > 0 {
		opts = append(opts, practice.WithExactWindow(pr.ExactWindow))
	}
	if pr.FuzzyWindow > 0 {
		opts = append(opts, practice.WithFuzzyWindow(pr.FuzzyWindow))
	}
	if pr.FuzzyThreshold > 0 {
		opts = append(opts, practice.WithFuzzyThreshold(pr.FuzzyThreshold))
	}
	if pr.PhoneticMatching {
		opts = append(opts, practice.WithPhoneticMatching(true))
	}
	return opts
}

// checkers assembles the readiness probes for dependencies that can fail
// independently of the process.
func (a *App) checkers() []health.Checker {
	var checkers []health.Checker
	if a.store != nil {
		checkers = append(checkers, health.Checker{
			Name:  "history",
			Check: a.store.Ping,
		})
	}
	return checkers
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// It returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.httpSrv.Addr, err)
	}
	slog.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpSrv.Shutdown(drainCtx); err != nil {
		slog.Warn("http drain incomplete", "error", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (a *App) Addr() string {
	return a.httpSrv.Addr
}

// Handler returns the app's HTTP handler. Intended for tests that drive the
// API without opening a socket.
func (a *App) Handler() http.Handler {
	return a.httpSrv.Handler
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
