package server

import (
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/tickerdesk/health"
	"github.com/KOMKZ/tickerdesk/httpx"
	"github.com/KOMKZ/tickerdesk/limiter"
	"github.com/KOMKZ/tickerdesk/middleware"
)

// Config "server" section
type Config struct {
	Port int `mapstructure:"port"`
	// Mode gin mode: debug, release or test
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	CORS         CORSConfig               `mapstructure:"cors"`
	RequestLog   RequestLogConfig         `mapstructure:"request_log"`
	Metrics      bool                     `mapstructure:"metrics"`
	ErrorLogging httpx.ErrorLoggingConfig `mapstructure:"error_logging"`
	ForceLimit   limiter.Config           `mapstructure:"force_limit"`
	Health       health.Config            `mapstructure:"health"`
}

// CORSConfig cors switch plus middleware settings
type CORSConfig struct {
	Enable                bool `mapstructure:"enable"`
	middleware.CORSConfig `mapstructure:",squash"`
}

// RequestLogConfig access log switch
type RequestLogConfig struct {
	Enable    bool     `mapstructure:"enable"`
	SkipPaths []string `mapstructure:"skip_paths"`
}

// DefaultConfig :8080 in release mode
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORS:            CORSConfig{Enable: true, CORSConfig: middleware.DefaultCORSConfig()},
		RequestLog:      RequestLogConfig{Enable: true, SkipPaths: []string{"/health", "/health/liveness", "/health/readiness"}},
		Metrics:         true,
		ErrorLogging:    httpx.DefaultErrorLoggingConfig(),
		ForceLimit:      limiter.DefaultConfig(),
		Health:          health.DefaultConfig(),
	}
}

// ApplyDefaults fills zero-valued scalars
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ErrorLogging.LogLevel == "" {
		c.ErrorLogging.LogLevel = d.ErrorLogging.LogLevel
	}
	if c.Health.Timeout == 0 {
		c.Health.Timeout = d.Health.Timeout
	}
	if c.ForceLimit.Enabled {
		c.ForceLimit.ApplyDefaults()
	}
}

// Validate checks the section
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Mode, validation.In(gin.DebugMode, gin.ReleaseMode, gin.TestMode)),
	)
	if err != nil {
		return ErrConfig.Wrap(err)
	}
	if err := validation.Validate(c.ErrorLogging.LogLevel, validation.In("error", "warn", "info")); err != nil {
		return ErrConfig.Wrapf(err, "invalid error_logging.log_level")
	}
	for class, level := range c.ErrorLogging.ClassLevels {
		if err := validation.Validate(level, validation.In("error", "warn", "info", "debug")); err != nil {
			return ErrConfig.Wrapf(err, "invalid error_logging.class_levels.%s", class)
		}
	}
	if c.ForceLimit.Enabled {
		if err := c.ForceLimit.Validate(); err != nil {
			return ErrConfig.Wrap(err)
		}
	}
	return nil
}
