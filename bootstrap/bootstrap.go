// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from an optional YAML file overlaid with PIPEKIT_*
// environment variables.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/artpar/pipekit/adapters/clock"
	"github.com/artpar/pipekit/adapters/hasher"
	apihttp "github.com/artpar/pipekit/adapters/http"
	"github.com/artpar/pipekit/adapters/idgen"
	"github.com/artpar/pipekit/adapters/memory"
	"github.com/artpar/pipekit/adapters/metrics"
	"github.com/artpar/pipekit/adapters/sqlite"
	"github.com/artpar/pipekit/config"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/stdlib"
	"github.com/artpar/pipekit/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options configure application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration is read from the environment and hot reload of the
	// config file is disabled.
	ConfigPath string

	// Version is reported by /version.
	Version string

	// LogOutput defaults to os.Stdout.
	LogOutput io.Writer
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Runtime    *runtime.Runtime
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	DB         *sqlite.DB

	holder   *config.Holder
	history  ports.HistoryStore
	buffered *BufferedHistory
	clock    ports.Clock

	mu      sync.Mutex
	library *stdlib.Library
	cost    int
}

// New loads configuration and definitions and builds the application.
func New(opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}

	logger := NewLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Str("definitions", cfg.Definitions.Dir).Msg("initializing pipekit")

	a := &App{
		Logger:  logger,
		Config:  cfg,
		clock:   clock.Real{},
		library: stdlib.New(hasher.NewBcrypt(cfg.Stdlib.BcryptCost), logger),
		cost:    cfg.Stdlib.BcryptCost,
	}

	if err := a.initHistory(); err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	var registry *prometheus.Registry
	var rtMetrics ports.Metrics = ports.NopMetrics{}
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.NewWithRegistry(registry)
		rtMetrics = a.Metrics
		logger.Info().Msg("prometheus metrics enabled")
	}

	snap, err := runtime.LoadDir(a.library, cfg.Definitions.Dir, a.clock.Now())
	if err != nil {
		a.closeHistory()
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	a.Runtime = runtime.New(runtime.Config{
		Logger:  logger,
		Clock:   a.clock,
		IDs:     idgen.UUID{Prefix: idgen.EvaluationPrefix},
		History: a.history,
		Metrics: rtMetrics,
	}, snap)
	logger.Info().
		Int("pipelines", len(snap.Pipelines())).
		Int("files", len(snap.Sources())).
		Msg("definitions loaded")

	routerCfg := apihttp.RouterConfig{
		MetricsPath:    cfg.Metrics.Path,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.WriteTimeout,
		Version:        opts.Version,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      apihttp.NewRouter(a.Runtime, logger, routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, logger)
			if err != nil {
				a.closeHistory()
				return nil, err
			}
			a.holder = holder
			holder.OnChange(a.applyConfig)
			holder.OnDefinitionsChange(func() {
				if err := a.ReloadDefinitions(); err != nil {
					a.Logger.Error().Err(err).Msg("definition reload failed, keeping previous definitions")
				}
			})
		}
	}

	return a, nil
}

// NewLogger builds the application logger.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func (a *App) initHistory() error {
	h := a.Config.History
	switch h.Driver {
	case "none":
		a.Logger.Info().Msg("evaluation history disabled")
		return nil
	case "memory":
		a.history = memory.NewHistoryStore(h.Capacity)
	case "sqlite":
		db, err := sqlite.Open(h.DSN)
		if err != nil {
			return err
		}
		applied, err := db.Migrate(context.Background())
		if err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		for _, v := range applied {
			a.Logger.Info().Str("version", v).Msg("applied migration")
		}
		a.DB = db
		a.buffered = NewBufferedHistory(sqlite.NewHistoryStore(db), h.BatchSize, h.FlushInterval, a.Logger)
		a.history = a.buffered
	default:
		return fmt.Errorf("unknown history driver %q", h.Driver)
	}
	a.Logger.Info().Str("driver", h.Driver).Msg("evaluation history initialized")
	return nil
}

// ReloadDefinitions rebuilds the definitions and swaps them in. On failure
// the previous definitions stay active.
func (a *App) ReloadDefinitions() error {
	a.mu.Lock()
	lib := a.library
	a.mu.Unlock()

	snap, err := runtime.LoadDir(lib, a.Config.Definitions.Dir, a.clock.Now())
	if err != nil {
		a.Runtime.ReloadFailed(err)
		return err
	}
	a.Runtime.Swap(snap)
	return nil
}

// applyConfig applies the reloadable config fields.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a.mu.Lock()
	changed := cfg.Stdlib.BcryptCost != a.cost
	if changed {
		a.cost = cfg.Stdlib.BcryptCost
		a.library = stdlib.New(hasher.NewBcrypt(a.cost), a.Logger)
	}
	a.mu.Unlock()

	if changed {
		a.Logger.Info().Int("bcrypt_cost", cfg.Stdlib.BcryptCost).Msg("rebuilding standard library")
		if err := a.ReloadDefinitions(); err != nil {
			a.Logger.Error().Err(err).Msg("definition reload failed, keeping previous definitions")
		}
	}
}

// Run starts the HTTP server and blocks until ctx is done, SIGINT or
// SIGTERM is received, or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.holder != nil {
		if err := a.holder.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to watch config, hot reload disabled")
		}
		a.holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeHistory()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeHistory() {
	if a.buffered != nil {
		if err := a.buffered.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("history flush error")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}
}
