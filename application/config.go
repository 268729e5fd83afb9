package application

import (
	"fmt"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/config"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/provider/nse"
	"github.com/KOMKZ/tickerdesk/provider/yahoo"
	"github.com/KOMKZ/tickerdesk/server"
	"github.com/KOMKZ/tickerdesk/telemetry"
	"github.com/KOMKZ/tickerdesk/warmup"
)

// AppConfig the whole tickerdesk configuration, one field per top-level section
type AppConfig struct {
	Logger    logger.ManagerConfig `mapstructure:"logger"`
	Store     artifact.Config      `mapstructure:"store"`
	Cache     cache.Config         `mapstructure:"cache"`
	Providers ProvidersConfig      `mapstructure:"providers"`
	Server    server.Config        `mapstructure:"server"`
	Warmup    warmup.Config        `mapstructure:"warmup"`
	Telemetry telemetry.Config     `mapstructure:"telemetry"`
}

// ProvidersConfig upstream clients
type ProvidersConfig struct {
	Yahoo provider.Config `mapstructure:"yahoo"`
	NSE   nse.Config      `mapstructure:"nse"`
}

// DefaultConfig every section at its defaults
func DefaultConfig() AppConfig {
	cfg := AppConfig{
		Logger:    logger.DefaultManagerConfig(),
		Store:     artifact.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Server:    server.DefaultConfig(),
		Warmup:    warmup.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values in every section
func (c *AppConfig) ApplyDefaults() {
	c.Logger.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Providers.Yahoo.ApplyDefaults(yahoo.DefaultBaseURL)
	c.Providers.NSE.Config.ApplyDefaults(nse.DefaultBaseURL)
	if c.Providers.NSE.ArchiveURL == "" {
		c.Providers.NSE.ArchiveURL = nse.DefaultArchiveURL
	}
	c.Server.ApplyDefaults()
	c.Warmup.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section, stopping at the first failure
func (c AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return config.ValidateAll(
		c.Store,
		c.Cache,
		c.Providers.Yahoo,
		c.Providers.NSE.Config,
		c.Server,
		c.Warmup,
		c.Telemetry,
	)
}

// LoadConfig reads every section from loader over the defaults
// Sections missing from the loader keep their defaults.
func LoadConfig(loader *config.Loader) (*AppConfig, error) {
	cfg := DefaultConfig()
	sections := []struct {
		key string
		dst any
	}{
		{"logger", &cfg.Logger},
		{"store", &cfg.Store},
		{"cache", &cfg.Cache},
		{"providers", &cfg.Providers},
		{"server", &cfg.Server},
		{"warmup", &cfg.Warmup},
		{"telemetry", &cfg.Telemetry},
	}
	for _, s := range sections {
		if err := loader.UnmarshalKey(s.key, s.dst); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
