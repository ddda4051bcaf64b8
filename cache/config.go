package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds manager defaults.
type Config struct {
	// MemoryTTL is the default memory tier TTL (default 5m)
	MemoryTTL time.Duration `mapstructure:"memory_ttl"`

	// RemoteTTL is the default remote tier TTL (default 2 x MemoryTTL)
	RemoteTTL time.Duration `mapstructure:"remote_ttl"`

	// MaxEntries bounds the memory tier across all shards (default 10000)
	MaxEntries int `mapstructure:"max_entries"`

	// Shards is the number of memory tier partitions (default 16)
	Shards int `mapstructure:"shards"`

	// SweepInterval is how often expired memory entries are reclaimed (default 1m)
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// KeyPrefix is prepended to every remote key (default "cache:")
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c *Config) ApplyDefaults() {
	if c.MemoryTTL == 0 {
		c.MemoryTTL = 5 * time.Minute
	}
	if c.RemoteTTL == 0 {
		c.RemoteTTL = 2 * c.MemoryTTL
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 10000
	}
	if c.Shards == 0 {
		c.Shards = 16
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cache:"
	}
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.MemoryTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RemoteTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxEntries, validation.Min(1)),
		validation.Field(&c.Shards, validation.Min(1), validation.Max(1024)),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.KeyPrefix, validation.Required),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	return nil
}
