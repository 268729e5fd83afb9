package artifact

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
)

// Config "store" configuration section
type Config struct {
	// Driver fs or redis
	Driver  string      `mapstructure:"driver"`
	RootDir string      `mapstructure:"root_dir"`
	Fsync   bool        `mapstructure:"fsync"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig redis backend settings
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// DefaultConfig fs backend under ./data/artifacts
func DefaultConfig() Config {
	return Config{
		Driver:  "fs",
		RootDir: "data/artifacts",
		Fsync:   true,
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "tickerdesk:artifact:",
		},
	}
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.RootDir == "" {
		c.RootDir = d.RootDir
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = d.Redis.KeyPrefix
	}
}

// Validate checks the section
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("fs", "redis")),
		validation.Field(&c.RootDir, validation.When(c.Driver == "fs", validation.Required)),
	)
	if err != nil {
		return ErrConfig.Wrap(err)
	}
	if c.Driver == "redis" {
		err = validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
			validation.Field(&c.Redis.DB, validation.Min(0)),
			validation.Field(&c.Redis.TTL, validation.Min(time.Duration(0))),
		)
		if err != nil {
			return ErrConfig.Wrap(fmt.Errorf("redis: %w", err))
		}
	}
	return nil
}

// NewBackend builds the configured backend
func NewBackend(cfg Config) (Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisBackend(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil
	default:
		return NewOSBackend(cfg.RootDir, WithFsync(cfg.Fsync)), nil
	}
}

// Open builds the configured backend and wraps it in a Store
func Open(cfg Config, opts ...Option) (*Store, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, opts...), nil
}
