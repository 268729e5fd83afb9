package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config "cache" configuration section
type Config struct {
	// SingleFlight collapses concurrent recomputes of one (key, kind) in this process
	SingleFlight bool `mapstructure:"single_flight"`
	// FlightTimeout upper bound of a shared recompute
	FlightTimeout time.Duration `mapstructure:"flight_timeout"`
	// Location IANA zone for SameCalendarDay, "Local" for the server zone
	Location string `mapstructure:"location"`
}

// DefaultFlightTimeout covers a provider call with its retries
const DefaultFlightTimeout = time.Minute

// DefaultConfig single-flight on, server local zone
func DefaultConfig() Config {
	return Config{SingleFlight: true, FlightTimeout: DefaultFlightTimeout, Location: "Local"}
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	if c.Location == "" {
		c.Location = "Local"
	}
	if c.FlightTimeout == 0 {
		c.FlightTimeout = DefaultFlightTimeout
	}
}

// Validate checks the section
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.FlightTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Location, validation.Required, validation.By(func(any) error {
			_, err := time.LoadLocation(c.Location)
			return err
		})),
	)
	if err != nil {
		return ErrConfig.Wrap(err)
	}
	return nil
}

// LoadLocation resolves Location
func (c Config) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}
	return loc, nil
}
