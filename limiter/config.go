package limiter

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Config "server.force_limit" section
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Rate tokens refilled per second
	Rate float64 `mapstructure:"rate"`
	// Capacity burst size
	Capacity int64 `mapstructure:"capacity"`
	// Store memory or redis
	Store string      `mapstructure:"store"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig redis store settings
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultConfig six forced refreshes per client per minute, bursts of three
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Rate:     0.1,
		Capacity: 3,
		Store:    "memory",
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "tickerdesk:limiter:",
		},
	}
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Rate == 0 {
		c.Rate = d.Rate
	}
	if c.Capacity == 0 {
		c.Capacity = d.Capacity
	}
	if c.Store == "" {
		c.Store = d.Store
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = d.Redis.KeyPrefix
	}
}

// ErrInvalidConfig configuration rejected
var ErrInvalidConfig = errors.New("invalid limiter config")

// Validate checks the section
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Rate, validation.Min(0.0).Exclusive()),
		validation.Field(&c.Capacity, validation.Min(int64(1))),
		validation.Field(&c.Store, validation.In("memory", "redis")),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// NewFromConfig builds a limiter; nil when disabled
func NewFromConfig(cfg Config, clock clockwork.Clock, opts ...Option) (*Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var store Store
	switch cfg.Store {
	case "redis":
		store = NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Redis.KeyPrefix)
	default:
		store = NewMemoryStore(clock)
	}
	return New(store, cfg.Rate, cfg.Capacity, append([]Option{WithClock(clock)}, opts...)...), nil
}
