package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/logger"
)

func TestManager_Disabled(t *testing.T) {
	m, err := NewManager(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	assert.False(t, m.Enabled())
	assert.False(t, m.TracingEnabled())
	assert.NotNil(t, m.Meter("test"))
	assert.NotNil(t, m.Tracer("test"))
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_StdoutExport(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = "tickerdesk-test"
	cfg.Exporter.Type = ExporterStdout
	cfg.Sampler.Type = SamplerAlwaysOn
	cfg.ResourceAttrs = map[string]any{"deployment": map[string]any{"environment": "test"}}

	m, err := NewManager(cfg, WithWriter(&buf))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	assert.True(t, m.TracingEnabled())

	_, span := m.Tracer("report").Start(ctx, "render daily/quote")
	span.End()
	counter, err := m.Meter("report").Int64Counter("reports_rendered")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, m.Shutdown(ctx))
	out := buf.String()
	assert.Contains(t, out, "render daily/quote")
	assert.Contains(t, out, "reports_rendered")
	assert.Contains(t, out, "tickerdesk-test")
	assert.Contains(t, out, "deployment.environment")

	// idempotent
	assert.NoError(t, m.Shutdown(ctx))
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	base.Enabled = true
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"exporter": func(c *Config) { c.Exporter.Type = "zipkin" },
		"endpoint": func(c *Config) { c.Exporter.Endpoint = "" },
		"sampler":  func(c *Config) { c.Sampler.Type = "sometimes" },
		"ratio":    func(c *Config) { c.Sampler.Type = SamplerRatio; c.Sampler.Ratio = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
		})
	}

	off := Config{Exporter: ExporterConfig{Type: "zipkin"}}
	assert.NoError(t, off.Validate())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "tickerdesk", cfg.ServiceName)
	assert.Equal(t, ExporterOTLP, cfg.Exporter.Type)
	assert.Equal(t, SamplerParentAlwaysOn, cfg.Sampler.Type)
	assert.Equal(t, 30*time.Second, cfg.Metrics.ExportInterval)
}

type failingExporter struct {
	calls int
}

func (f *failingExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	f.calls++
	return errors.New("collector unreachable")
}

func (f *failingExporter) Shutdown(context.Context) error { return nil }

func TestBreakerExporter_DropsWhileOpen(t *testing.T) {
	next := &failingExporter{}
	cfg := httpclient.BreakerConfig{Enabled: true, MaxRequests: 1, Timeout: time.Minute, ConsecutiveFailures: 2}
	e := newBreakerExporter(next, cfg, logger.GetLogger("telemetry"))
	ctx := context.Background()
	batch := make([]sdktrace.ReadOnlySpan, 4)

	assert.Error(t, e.ExportSpans(ctx, batch))
	assert.Error(t, e.ExportSpans(ctx, batch))
	assert.NoError(t, e.ExportSpans(ctx, batch))
	assert.NoError(t, e.ExportSpans(ctx, batch))

	assert.Equal(t, 2, next.calls)
	assert.Equal(t, int64(8), e.Dropped())
}

func TestBreakerExporter_Disabled(t *testing.T) {
	next := &failingExporter{}
	e := newBreakerExporter(next, httpclient.BreakerConfig{}, logger.GetLogger("telemetry"))
	for i := 0; i < 5; i++ {
		assert.Error(t, e.ExportSpans(context.Background(), nil))
	}
	assert.Equal(t, 5, next.calls)
}

func TestFlatten(t *testing.T) {
	got := flatten(map[string]any{
		"region": "ap-south-1",
		"deployment": map[string]any{
			"environment": "prod",
			"replica":     2,
		},
	}, "")
	assert.Equal(t, map[string]string{
		"region":                 "ap-south-1",
		"deployment.environment": "prod",
		"deployment.replica":     "2",
	}, got)
}
