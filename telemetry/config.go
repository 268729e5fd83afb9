package telemetry

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/tickerdesk/httpclient"
)

// Exporter types
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// Sampler types
const (
	SamplerAlwaysOn        = "always_on"
	SamplerAlwaysOff       = "always_off"
	SamplerRatio           = "trace_id_ratio"
	SamplerParentAlwaysOn  = "parent_based_always_on"
	defaultServiceName     = "tickerdesk"
	defaultMetricsInterval = 30 * time.Second
)

// Config "telemetry" section
type Config struct {
	Enabled        bool           `mapstructure:"enabled"`
	ServiceName    string         `mapstructure:"service_name"`
	ServiceVersion string         `mapstructure:"service_version"`
	Exporter       ExporterConfig `mapstructure:"exporter"`
	Sampler        SamplerConfig  `mapstructure:"sampler"`
	Traces         bool           `mapstructure:"traces"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
	// ResourceAttrs extra resource attributes; nested maps are flattened with dots
	ResourceAttrs map[string]any `mapstructure:"resource_attributes"`
	// Breaker guards the span exporter; spans are dropped while it is open
	Breaker httpclient.BreakerConfig `mapstructure:"breaker"`
}

// ExporterConfig where spans and metrics go
type ExporterConfig struct {
	Type     string            `mapstructure:"type"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"`
}

// SamplerConfig trace sampling
type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Ratio float64 `mapstructure:"ratio"`
}

// MetricsConfig periodic metric export
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
	ExportTimeout  time.Duration `mapstructure:"export_timeout"`
}

// DefaultConfig disabled; when switched on, traces and metrics go to a local collector
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		ServiceName: defaultServiceName,
		Exporter: ExporterConfig{
			Type:     ExporterOTLP,
			Endpoint: "localhost:4317",
			Insecure: true,
			Timeout:  10 * time.Second,
		},
		Sampler: SamplerConfig{Type: SamplerParentAlwaysOn, Ratio: 1},
		Traces:  true,
		Metrics: MetricsConfig{
			Enabled:        true,
			ExportInterval: defaultMetricsInterval,
			ExportTimeout:  10 * time.Second,
		},
		Breaker: httpclient.DefaultBreakerConfig(),
	}
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.Exporter.Type == "" {
		c.Exporter.Type = d.Exporter.Type
	}
	if c.Exporter.Timeout <= 0 {
		c.Exporter.Timeout = d.Exporter.Timeout
	}
	if c.Sampler.Type == "" {
		c.Sampler = d.Sampler
	}
	if c.Metrics.ExportInterval <= 0 {
		c.Metrics.ExportInterval = d.Metrics.ExportInterval
	}
	if c.Metrics.ExportTimeout <= 0 {
		c.Metrics.ExportTimeout = d.Metrics.ExportTimeout
	}
}

// Validate only checked when enabled
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Exporter, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Exporter,
				validation.Field(&c.Exporter.Type, validation.Required, validation.In(ExporterOTLP, ExporterStdout)),
				validation.Field(&c.Exporter.Endpoint, validation.When(c.Exporter.Type == ExporterOTLP, validation.Required)),
			)
		})),
		validation.Field(&c.Sampler, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Sampler,
				validation.Field(&c.Sampler.Type, validation.In(SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentAlwaysOn)),
				validation.Field(&c.Sampler.Ratio, validation.Min(0.0), validation.Max(1.0)),
			)
		})),
	)
	if err != nil {
		return ErrConfig.Wrap(err)
	}
	return nil
}
