package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/metric"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/config"
	"github.com/KOMKZ/tickerdesk/health"
	"github.com/KOMKZ/tickerdesk/limiter"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/provider/nse"
	"github.com/KOMKZ/tickerdesk/provider/yahoo"
	"github.com/KOMKZ/tickerdesk/report"
	"github.com/KOMKZ/tickerdesk/server"
	"github.com/KOMKZ/tickerdesk/telemetry"
	"github.com/KOMKZ/tickerdesk/warmup"
)

// Resources closes services that have no Shutdown method
// Every such service depends on it, so the container shuts it down last.
type Resources struct {
	mu      sync.Mutex
	names   []string
	closers []io.Closer
}

// Add registers c to be closed on shutdown
func (r *Resources) Add(name string, c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.closers = append(r.closers, c)
}

// Shutdown closes in reverse registration order
func (r *Resources) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", r.names[i], err))
		}
	}
	r.closers, r.names = nil, nil
	return errors.Join(errs...)
}

// ProvideResources the closer registry
func ProvideResources(do.Injector) (*Resources, error) {
	return &Resources{}, nil
}

// ProvideConfig reads *AppConfig from the loader
func ProvideConfig(i do.Injector) (*AppConfig, error) {
	loader, err := do.Invoke[*config.Loader](i)
	if err != nil {
		return nil, err
	}
	return LoadConfig(loader)
}

// ProvideTelemetry starts the OTel providers; a disabled manager keeps the no-op globals
func ProvideTelemetry(version string) func(do.Injector) (*telemetry.Manager, error) {
	return func(i do.Injector) (*telemetry.Manager, error) {
		cfg := do.MustInvoke[*AppConfig](i).Telemetry
		if cfg.ServiceVersion == "" {
			cfg.ServiceVersion = version
		}
		m, err := telemetry.NewManager(cfg, telemetry.WithLogger(logger.GetLogger("telemetry")))
		if err != nil {
			return nil, err
		}
		if err := m.Start(context.Background()); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// ProvideMeter meter of the telemetry manager
func ProvideMeter(i do.Injector) (metric.Meter, error) {
	m, err := do.Invoke[*telemetry.Manager](i)
	if err != nil {
		return nil, err
	}
	return m.Meter("tickerdesk"), nil
}

// ProvideStore opens the configured artifact backend
func ProvideStore(i do.Injector) (*artifact.Store, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	store, err := artifact.Open(cfg.Store,
		artifact.WithClock(do.MustInvoke[clockwork.Clock](i)),
		artifact.WithLogger(logger.GetLogger("artifact")),
	)
	if err != nil {
		return nil, err
	}
	// a failed sweep is logged by the store and never blocks startup
	_, _ = store.Sweep(context.Background())
	do.MustInvoke[*Resources](i).Add("artifact store", store)
	return store, nil
}

// ProvideFetchCache wraps the store
func ProvideFetchCache(i do.Injector) (*cache.FetchCache, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	loc, err := cfg.Cache.LoadLocation()
	if err != nil {
		return nil, err
	}
	store, err := do.Invoke[*artifact.Store](i)
	if err != nil {
		return nil, err
	}
	return cache.New(store,
		cache.WithClock(do.MustInvoke[clockwork.Clock](i)),
		cache.WithLocation(loc),
		cache.WithSingleFlight(cfg.Cache.SingleFlight),
		cache.WithFlightTimeout(cfg.Cache.FlightTimeout),
		cache.WithLogger(logger.GetLogger("cache")),
		cache.WithMeter(do.MustInvoke[metric.Meter](i)),
	), nil
}

// ProvideSources Yahoo chart and NSE clients
func ProvideSources(i do.Injector) (report.Sources, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	log := logger.GetLogger("provider")
	return report.Sources{
		Chart: yahoo.New(cfg.Providers.Yahoo, yahoo.WithLogger(log)),
		Market: nse.New(cfg.Providers.NSE,
			nse.WithClock(do.MustInvoke[clockwork.Clock](i)),
			nse.WithLogger(log),
		),
	}, nil
}

// ProvideReportService the built-in reports over the fetch cache
func ProvideReportService(i do.Injector) (*report.Service, error) {
	fc, err := do.Invoke[*cache.FetchCache](i)
	if err != nil {
		return nil, err
	}
	src, err := do.Invoke[report.Sources](i)
	if err != nil {
		return nil, err
	}
	return report.NewService(fc, report.DefaultRegistry(), src,
		report.WithLogger(logger.GetLogger("report"))), nil
}

// ProvideWarmer scheduled warmup; built even when disabled so `warm` can run it once
func ProvideWarmer(i do.Injector) (*warmup.Warmer, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	svc, err := do.Invoke[*report.Service](i)
	if err != nil {
		return nil, err
	}
	return warmup.New(cfg.Warmup, svc,
		warmup.WithClock(do.MustInvoke[clockwork.Clock](i)),
		warmup.WithLogger(logger.GetLogger("warmup")),
	)
}

// ProvideForceLimiter limiter for ?force=true; nil when disabled
func ProvideForceLimiter(i do.Injector) (*limiter.Limiter, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	l, err := limiter.NewFromConfig(cfg.Server.ForceLimit, do.MustInvoke[clockwork.Clock](i),
		limiter.WithLogger(logger.GetLogger("limiter")))
	if err != nil {
		return nil, server.ErrConfig.Wrap(err)
	}
	if l != nil {
		do.MustInvoke[*Resources](i).Add("force limiter", l)
	}
	return l, nil
}

// ProvideHealth store ping is critical; warmup only degrades
func ProvideHealth(name, version string) func(do.Injector) (*health.Aggregator, error) {
	return func(i do.Injector) (*health.Aggregator, error) {
		cfg := do.MustInvoke[*AppConfig](i)
		store, err := do.Invoke[*artifact.Store](i)
		if err != nil {
			return nil, err
		}
		agg := health.NewAggregator(cfg.Server.Health.Timeout)
		agg.SetMetadata("app", name)
		agg.SetMetadata("version", version)
		agg.Register(store.HealthCheck())
		if cfg.Warmup.Enabled {
			w, err := do.Invoke[*warmup.Warmer](i)
			if err != nil {
				return nil, err
			}
			agg.Register(w.HealthCheck())
		}
		return agg, nil
	}
}

// ProvideServer the gin server with every middleware wired
func ProvideServer(i do.Injector) (*server.Server, error) {
	cfg := do.MustInvoke[*AppConfig](i)
	svc, err := do.Invoke[*report.Service](i)
	if err != nil {
		return nil, err
	}
	agg, err := do.Invoke[*health.Aggregator](i)
	if err != nil {
		return nil, err
	}
	opts := []server.Option{
		server.WithHealth(agg),
		server.WithMeter(do.MustInvoke[metric.Meter](i)),
		server.WithLogger(logger.GetLogger("server")),
	}
	l, err := do.Invoke[*limiter.Limiter](i)
	if err != nil {
		return nil, err
	}
	if l != nil {
		opts = append(opts, server.WithForceLimiter(l))
	}
	tm, err := do.Invoke[*telemetry.Manager](i)
	if err != nil {
		return nil, err
	}
	if tm.TracingEnabled() {
		opts = append(opts, server.WithTracing(tm.TracerProvider(), tm.ServiceName()))
	}
	return server.New(cfg.Server, svc, opts...)
}
