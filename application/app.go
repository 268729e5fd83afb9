// Package application assembles tickerdesk from its configuration with a
// samber/do container: config loader, logger, artifact store, fetch cache,
// providers, report service, warmup and the HTTP server.
package application

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/config"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/report"
	"github.com/KOMKZ/tickerdesk/server"
	"github.com/KOMKZ/tickerdesk/warmup"
)

// AppState lifecycle state
type AppState int

const (
	StateInit AppState = iota
	StateSetup
	StateRunning
	StateStopping
	StateStopped
)

// String state name
func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSetup:
		return "Setup"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// App tickerdesk application
type App struct {
	injector *do.RootScope

	configPath   string
	envPrefix    string
	defaults     map[string]any
	flags        *pflag.FlagSet
	flagBindings map[string]string

	// test overrides
	clock   clockwork.Clock
	sources *report.Sources

	cfg    *AppConfig
	logger *logger.CtxZapLogger

	mu    sync.RWMutex
	state AppState

	name    string
	version string
}

// Option application option
type Option func(*App)

// WithConfigPath directory holding config.yaml and <env>.yaml
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithEnvPrefix environment override prefix ("" keeps TICKERDESK)
func WithEnvPrefix(prefix string) Option {
	return func(a *App) { a.envPrefix = prefix }
}

// WithDefaults lowest priority configuration layer
func WithDefaults(defaults map[string]any) Option {
	return func(a *App) { a.defaults = defaults }
}

// WithFlags binds command line flags (flag name -> config key)
func WithFlags(flags *pflag.FlagSet, bindings map[string]string) Option {
	return func(a *App) {
		a.flags = flags
		a.flagBindings = bindings
	}
}

// WithClock clock shared by the store, cache, providers and warmup
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithSources replaces the Yahoo and NSE clients
func WithSources(src report.Sources) Option {
	return func(a *App) { a.sources = &src }
}

// WithVersion version reported in health metadata and logs
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New creates an application; call Setup before using it
func New(opts ...Option) *App {
	a := &App{
		injector:   do.New(),
		configPath: "configs",
		state:      StateInit,
		name:       "tickerdesk",
		version:    "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Injector the container
func (a *App) Injector() *do.RootScope {
	return a.injector
}

// Config loaded configuration (nil before Setup)
func (a *App) Config() *AppConfig {
	return a.cfg
}

// Logger application logger
func (a *App) Logger() *logger.CtxZapLogger {
	return a.logger
}

// State current state
func (a *App) State() AppState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *App) setState(s AppState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// Setup loads the configuration, installs the logger and registers providers
// Nothing is built until it is invoked.
func (a *App) Setup() error {
	a.setState(StateSetup)

	do.Provide(a.injector, config.ProvideLoader(config.ProvideLoaderOptions{
		ConfigPath:   a.configPath,
		EnvPrefix:    a.envPrefix,
		Defaults:     a.defaults,
		Flags:        a.flags,
		FlagBindings: a.flagBindings,
	}))
	do.Provide(a.injector, ProvideConfig)

	cfg, err := do.Invoke[*AppConfig](a.injector)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger.InitManager(cfg.Logger)
	a.logger = logger.GetLogger("app")

	clock := a.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	do.ProvideValue(a.injector, clock)
	if a.sources != nil {
		do.ProvideValue(a.injector, *a.sources)
	} else {
		do.Provide(a.injector, ProvideSources)
	}
	do.Provide(a.injector, ProvideResources)
	do.Provide(a.injector, ProvideTelemetry(a.version))
	do.Provide(a.injector, ProvideMeter)
	do.Provide(a.injector, ProvideStore)
	do.Provide(a.injector, ProvideFetchCache)
	do.Provide(a.injector, ProvideReportService)
	do.Provide(a.injector, ProvideWarmer)
	do.Provide(a.injector, ProvideForceLimiter)
	do.Provide(a.injector, ProvideHealth(a.name, a.version))
	do.Provide(a.injector, ProvideServer)

	a.logger.Info("application configured",
		zap.String("name", a.name),
		zap.String("version", a.version),
		zap.Strings("config_files", do.MustInvoke[*config.Loader](a.injector).LoadedFiles()),
		zap.String("store", cfg.Store.Driver),
	)
	return nil
}

// Service the report service
func (a *App) Service() (*report.Service, error) {
	return do.Invoke[*report.Service](a.injector)
}

// Store the artifact store
func (a *App) Store() (*artifact.Store, error) {
	return do.Invoke[*artifact.Store](a.injector)
}

// Warmer the warmup scheduler
func (a *App) Warmer() (*warmup.Warmer, error) {
	return do.Invoke[*warmup.Warmer](a.injector)
}

// Server the HTTP server
func (a *App) Server() (*server.Server, error) {
	return do.Invoke[*server.Server](a.injector)
}

// Start starts the HTTP server and, when enabled, the warmup schedule
func (a *App) Start() error {
	srv, err := a.Server()
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	if a.cfg.Warmup.Enabled {
		w, err := a.Warmer()
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
	}

	a.setState(StateRunning)
	a.logger.Info("application started",
		zap.String("addr", srv.Addr()),
		zap.Bool("warmup", a.cfg.Warmup.Enabled),
	)
	return nil
}

// Run Setup, Start, then block until SIGINT or SIGTERM
func (a *App) Run() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	a.waitForSignal()
	return nil
}

func (a *App) waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	a.logger.Info("signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		a.logger.Error("shutdown failed", zap.Error(err))
	}
}

// Shutdown stops whatever was built, dependents first
func (a *App) Shutdown(ctx context.Context) error {
	a.setState(StateStopping)
	log := a.logger
	if log == nil {
		log = logger.GetLogger("app")
	}
	log.InfoCtx(ctx, "shutting down")

	if err := a.injector.Shutdown(); err != nil {
		log.WarnCtx(ctx, "container shutdown", zap.Error(err))
	}

	a.setState(StateStopped)
	log.InfoCtx(ctx, "application stopped")
	logger.CloseAll()
	return nil
}
