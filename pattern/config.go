package pattern

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config groups the background patterns' settings.
type Config struct {
	WriteBehind  WriteBehindConfig  `mapstructure:"write_behind"`
	RefreshAhead RefreshAheadConfig `mapstructure:"refresh_ahead"`
}

type WriteBehindConfig struct {
	// FlushInterval between scheduled drains (default 5s)
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	// FlushWorkers bounds concurrent writer calls (default 16)
	FlushWorkers int `mapstructure:"flush_workers"`
}

type RefreshAheadConfig struct {
	// Threshold is the fraction of the TTL after which a refresh fires (default 0.8)
	Threshold float64 `mapstructure:"threshold"`

	// Workers bounds concurrent loader calls (default 8)
	Workers int `mapstructure:"workers"`
}

func (c *Config) ApplyDefaults() {
	c.WriteBehind.ApplyDefaults()
	c.RefreshAhead.ApplyDefaults()
}

func (c Config) Validate() error {
	if err := c.WriteBehind.Validate(); err != nil {
		return err
	}
	return c.RefreshAhead.Validate()
}

func (c *WriteBehindConfig) ApplyDefaults() {
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.FlushWorkers == 0 {
		c.FlushWorkers = 16
	}
}

func (c WriteBehindConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.FlushInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.FlushWorkers, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	return nil
}

func (c *RefreshAheadConfig) ApplyDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.8
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
}

func (c RefreshAheadConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Threshold, validation.Required, validation.Min(0.01), validation.Max(1.0)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	return nil
}
