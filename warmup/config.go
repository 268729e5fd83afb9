package warmup

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/tickerdesk/report"
)

// Config "warmup" section
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Schedule cron expression used by jobs without their own
	Schedule string `mapstructure:"schedule"`
	// Timezone the schedule is read in
	Timezone string `mapstructure:"timezone"`
	// Workers concurrent renders
	Workers int `mapstructure:"workers"`
	// Timeout one job
	Timeout    time.Duration `mapstructure:"timeout"`
	RunOnStart bool          `mapstructure:"run_on_start"`
	Jobs       []Job         `mapstructure:"jobs"`
}

// Job one report to keep warm
type Job struct {
	Mode     string       `mapstructure:"mode"`
	Type     string       `mapstructure:"type"`
	Query    report.Query `mapstructure:",squash"`
	Schedule string       `mapstructure:"schedule"`
}

// Name mode/type plus the entity, e.g. daily/quote:INFY
func (j Job) Name() string {
	name := strings.ToLower(j.Mode + "/" + j.Type)
	var entity []string
	for _, s := range []string{j.Query.Symbol, j.Query.Index, j.Query.Date} {
		if s = strings.TrimSpace(s); s != "" {
			entity = append(entity, strings.ToUpper(s))
		}
	}
	if j.Query.Format != "" {
		entity = append(entity, strings.ToLower(j.Query.Format))
	}
	if len(entity) == 0 {
		return name
	}
	return name + ":" + strings.Join(entity, ",")
}

// DefaultConfig every quarter hour through the NSE session, weekdays
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Schedule: "*/15 9-15 * * 1-5",
		Timezone: "Asia/Kolkata",
		Workers:  4,
		Timeout:  time.Minute,
	}
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Schedule == "" {
		c.Schedule = d.Schedule
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
}

// Location parsed Timezone
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate checks the section; cron expressions are checked when scheduled
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Schedule, validation.Required),
		validation.Field(&c.Timezone, validation.Required, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Jobs, validation.When(c.Enabled, validation.Required)),
	)
	if err != nil {
		return ErrConfig.Wrap(err)
	}
	for i, j := range c.Jobs {
		if err := validation.ValidateStruct(&j,
			validation.Field(&j.Mode, validation.Required),
			validation.Field(&j.Type, validation.Required),
		); err != nil {
			return ErrConfig.Wrap(err).WithData("job", i)
		}
	}
	return nil
}
