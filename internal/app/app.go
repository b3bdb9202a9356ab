// Package app wires all Larynx subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithProvider, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wvoelker/larynx/internal/bridge"
	"github.com/wvoelker/larynx/internal/config"
	"github.com/wvoelker/larynx/internal/health"
	"github.com/wvoelker/larynx/internal/observe"
	"github.com/wvoelker/larynx/internal/resilience"
	"github.com/wvoelker/larynx/internal/server"
	"github.com/wvoelker/larynx/pkg/provider/s2s"
	geminilive "github.com/wvoelker/larynx/pkg/provider/s2s/gemini"
	oais2s "github.com/wvoelker/larynx/pkg/provider/s2s/openai"
)

// shutdownTimeout bounds graceful HTTP shutdown once the run context ends.
const shutdownTimeout = 15 * time.Second

// App owns all subsystem lifetimes for the Larynx bridge.
type App struct {
	cfg      *config.Config
	provider s2s.Provider
	metrics  *observe.Metrics
	srv      *server.Server
	httpSrv  *http.Server
	logLevel *slog.LevelVar
	watcher  *config.Watcher

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithProvider injects an AI provider instead of creating one from config.
func WithProvider(p s2s.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithMetrics injects a metrics instance instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the App the level var backing the process logger so
// config hot-reloads can adjust verbosity at runtime.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// New builds the application from cfg: the AI provider, the bridge session
// factory, and the HTTP server.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.provider == nil {
		p, err := BuildProvider(cfg.Provider)
		if err != nil {
			return nil, err
		}
		a.provider = p
	}

	// Explicit rate overrides that disagree with the provider's native
	// rates produce mislabeled, pitch-shifted audio. Surface that before
	// the first call does.
	caps := a.provider.Capabilities()
	if cfg.Audio.InputRate > 0 && caps.InputRate > 0 && cfg.Audio.InputRate != caps.InputRate {
		slog.Warn("configured audio.input_rate differs from the provider's native rate",
			"provider", cfg.Provider.Name,
			"configured", cfg.Audio.InputRate,
			"native", caps.InputRate,
		)
	}
	if cfg.Audio.OutputRate > 0 && caps.OutputRate > 0 && cfg.Audio.OutputRate != caps.OutputRate {
		slog.Warn("configured audio.output_rate differs from the provider's native rate",
			"provider", cfg.Provider.Name,
			"configured", cfg.Audio.OutputRate,
			"native", caps.OutputRate,
		)
	}

	// All session connects go through a breaker so that a dead AI endpoint
	// fails calls fast instead of each one timing out on dial.
	guarded := resilience.Guard(a.provider, resilience.CircuitBreakerConfig{
		Name: cfg.Provider.Name,
	})
	a.provider = guarded

	factory := func(w bridge.TelephonyWriter, abort func()) (*bridge.Session, error) {
		return bridge.NewSession(bridge.Config{
			Provider:     a.provider,
			ProviderName: cfg.Provider.Name,
			Writer:       w,
			Session: s2s.SessionConfig{
				Voice:        cfg.Provider.Voice,
				Instructions: cfg.Provider.SystemPrompt,
				InputRate:    cfg.Audio.InputRate,
				OutputRate:   cfg.Audio.OutputRate,
			},
			TelephonyRate: cfg.Audio.TelephonyRate,
			FrameBytes:    cfg.Audio.FrameBytes,
			Metrics:       a.metrics,
			Abort:         abort,
		})
	}

	srv, err := server.New(server.Config{
		PublicURL: cfg.Server.PublicURL,
		Greeting:  cfg.Provider.Greeting,
		Metrics:   a.metrics,
		ReadyChecks: []health.Checker{
			{Name: "ai_provider", Check: func(context.Context) error {
				if st := guarded.Breaker().State(); st == resilience.StateOpen {
					return fmt.Errorf("%s breaker is %s", cfg.Provider.Name, st)
				}
				return nil
			}},
		},
	}, factory)
	if err != nil {
		return nil, fmt.Errorf("app: create server: %w", err)
	}
	a.srv = srv

	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// BuildProvider constructs the configured AI provider.
func BuildProvider(pc config.ProviderConfig) (s2s.Provider, error) {
	switch pc.Name {
	case "gemini-live":
		var opts []geminilive.Option
		if pc.Model != "" {
			opts = append(opts, geminilive.WithModel(pc.Model))
		}
		if pc.BaseURL != "" {
			opts = append(opts, geminilive.WithBaseURL(pc.BaseURL))
		}
		return geminilive.New(pc.APIKey, opts...), nil
	case "openai-realtime":
		var opts []oais2s.Option
		if pc.Model != "" {
			opts = append(opts, oais2s.WithModel(pc.Model))
		}
		if pc.BaseURL != "" {
			opts = append(opts, oais2s.WithBaseURL(pc.BaseURL))
		}
		return oais2s.New(pc.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("app: unknown provider %q", pc.Name)
	}
}

// WatchConfig starts polling the config file at path and applies what can be
// hot-reloaded (currently the log level). Other changes are logged so the
// operator knows a restart is needed.
func (a *App) WatchConfig(path string) error {
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		d := config.Compare(old, new)
		if d.LogLevelChanged && a.logLevel != nil {
			a.logLevel.Set(slogLevel(new.Server.LogLevel))
			slog.Info("log level updated", "level", new.Server.LogLevel)
		}
		if d.ServerChanged || d.ProviderChanged || d.AudioChanged {
			slog.Warn("config changes to server, provider, or audio require a restart")
		}
	})
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// the listener down gracefully. Active calls are left to Shutdown.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening",
			"addr", a.httpSrv.Addr,
			"tls", a.cfg.Server.TLS != nil,
		)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: http server: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(shCtx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			_ = a.httpSrv.Close()
		}
		return gctx.Err()
	})

	return g.Wait()
}

// Shutdown force-closes any calls still bridged and stops the config
// watcher. Safe to call multiple times.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if n := a.srv.Calls().Len(); n > 0 {
			slog.Info("closing active calls", "count", n)
		}
		a.srv.Calls().CloseAll(ctx)
		slog.Info("shutdown complete")
	})
	return nil
}
