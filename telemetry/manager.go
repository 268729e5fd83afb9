// Package telemetry sets up OpenTelemetry tracing and metrics.
//
// A disabled Manager leaves the global no-op providers in place, so
// instruments created from Meter or Tracer are always safe to use.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/logger"
)

// Manager owns the tracer and meter providers
type Manager struct {
	cfg    Config
	log    *logger.CtxZapLogger
	writer io.Writer

	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	breaker *breakerExporter
	started bool
}

// Option manager option
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithWriter destination of the stdout exporters
func WithWriter(w io.Writer) Option {
	return func(m *Manager) {
		m.writer = w
	}
}

// NewManager creates a manager; nothing is exported until Start
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{cfg: cfg, log: logger.GetLogger("telemetry"), writer: os.Stdout}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start builds the providers and installs them globally
func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.DebugCtx(ctx, "telemetry disabled")
		return nil
	}
	if m.started {
		return nil
	}

	res, err := m.resource(ctx)
	if err != nil {
		return ErrExporter.Wrapf(err, "telemetry resource")
	}

	if m.cfg.Traces {
		exp, err := m.spanExporter(ctx)
		if err != nil {
			return ErrExporter.Wrapf(err, "span exporter")
		}
		m.breaker = newBreakerExporter(exp, m.cfg.Breaker, m.log)
		m.tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(m.sampler()),
			sdktrace.WithBatcher(m.breaker, sdktrace.WithExportTimeout(m.cfg.Exporter.Timeout)),
		)
		otel.SetTracerProvider(m.tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
	}

	if m.cfg.Metrics.Enabled {
		exp, err := m.metricExporter(ctx)
		if err != nil {
			m.shutdownTraces(ctx)
			return ErrExporter.Wrapf(err, "metric exporter")
		}
		m.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp,
				sdkmetric.WithInterval(m.cfg.Metrics.ExportInterval),
				sdkmetric.WithTimeout(m.cfg.Metrics.ExportTimeout),
			)),
		)
		otel.SetMeterProvider(m.mp)
	}

	m.started = true
	m.log.InfoCtx(ctx, "telemetry started",
		zap.String("service", m.cfg.ServiceName),
		zap.String("exporter", m.cfg.Exporter.Type),
		zap.Bool("traces", m.tp != nil),
		zap.Bool("metrics", m.mp != nil))
	return nil
}

// Enabled reports whether telemetry was switched on
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// TracingEnabled reports whether spans are being exported
func (m *Manager) TracingEnabled() bool {
	return m.tp != nil
}

// ServiceName resource service name
func (m *Manager) ServiceName() string {
	return m.cfg.ServiceName
}

// Meter from the sdk provider, or the global one when metrics are off
func (m *Manager) Meter(name string) metric.Meter {
	if m.mp != nil {
		return m.mp.Meter(name)
	}
	return otel.GetMeterProvider().Meter(name)
}

// TracerProvider sdk provider, or the global one when tracing is off
func (m *Manager) TracerProvider() trace.TracerProvider {
	if m.tp != nil {
		return m.tp
	}
	return otel.GetTracerProvider()
}

// Tracer named tracer
func (m *Manager) Tracer(name string) trace.Tracer {
	return m.TracerProvider().Tracer(name)
}

// Shutdown flushes and stops both providers
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	if m.tp != nil {
		if err := m.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
		m.tp = nil
	}
	if m.mp != nil {
		if err := m.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
		m.mp = nil
	}
	m.started = false
	return errors.Join(errs...)
}

func (m *Manager) shutdownTraces(ctx context.Context) {
	if m.tp != nil {
		_ = m.tp.Shutdown(ctx)
		m.tp = nil
	}
}

func (m *Manager) resource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(m.cfg.ServiceName)}
	if m.cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(m.cfg.ServiceVersion))
	}
	for k, v := range flatten(m.cfg.ResourceAttrs, "") {
		attrs = append(attrs, attribute.String(k, os.ExpandEnv(v)))
	}
	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
}

func (m *Manager) sampler() sdktrace.Sampler {
	switch m.cfg.Sampler.Type {
	case SamplerAlwaysOn:
		return sdktrace.AlwaysSample()
	case SamplerAlwaysOff:
		return sdktrace.NeverSample()
	case SamplerRatio:
		return sdktrace.TraceIDRatioBased(m.cfg.Sampler.Ratio)
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// flatten {"deployment": {"env": "prod"}} -> {"deployment.env": "prod"}
func flatten(in map[string]any, prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range in {
		if prefix != "" {
			k = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			for nk, nv := range flatten(val, k) {
				out[nk] = nv
			}
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
