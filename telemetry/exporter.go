package telemetry

import (
	"context"
	"sync/atomic"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/logger"
)

func (m *Manager) spanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if m.cfg.Exporter.Type == ExporterStdout {
		return stdouttrace.New(stdouttrace.WithWriter(m.writer))
	}
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(m.cfg.Exporter.Endpoint),
		otlptracegrpc.WithTimeout(m.cfg.Exporter.Timeout),
	}
	if m.cfg.Exporter.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(m.cfg.Exporter.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(m.cfg.Exporter.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func (m *Manager) metricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	if m.cfg.Exporter.Type == ExporterStdout {
		return stdoutmetric.New(stdoutmetric.WithWriter(m.writer))
	}
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(m.cfg.Exporter.Endpoint),
		otlpmetricgrpc.WithTimeout(m.cfg.Exporter.Timeout),
	}
	if m.cfg.Exporter.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	if len(m.cfg.Exporter.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(m.cfg.Exporter.Headers))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

// breakerExporter drops batches while the collector keeps failing
type breakerExporter struct {
	next    sdktrace.SpanExporter
	cb      *gobreaker.CircuitBreaker
	dropped atomic.Int64
	log     *logger.CtxZapLogger
}

func newBreakerExporter(next sdktrace.SpanExporter, cfg httpclient.BreakerConfig, log *logger.CtxZapLogger) *breakerExporter {
	e := &breakerExporter{next: next, log: log}
	if cfg.Enabled {
		e.cb = httpclient.NewBreaker("telemetry-exporter", cfg, log)
	}
	return e
}

func (e *breakerExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if e.cb == nil {
		return e.next.ExportSpans(ctx, spans)
	}
	_, err := e.cb.Execute(func() (any, error) {
		return nil, e.next.ExportSpans(ctx, spans)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		if e.dropped.Add(int64(len(spans))) == int64(len(spans)) {
			e.log.WarnCtx(ctx, "span exporter unavailable, dropping spans", zap.Int("spans", len(spans)))
		}
		return nil
	}
	return err
}

func (e *breakerExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}

// Dropped spans discarded while the breaker was open
func (e *breakerExporter) Dropped() int64 {
	return e.dropped.Load()
}
