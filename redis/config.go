package redis

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config describes the single logical connection to the remote tier.
type Config struct {
	// URL of the server.
	// Single node: redis://[user:pass@]host:port/db
	// Cluster:     redis+cluster://[user:pass@]host1:port,host2:port
	//          or  redis://host:port?cluster=true&addr=host2:port
	URL string `mapstructure:"url"`

	// ConnectTimeout bounds dialing and the initial PING (default 10s)
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// CommandTimeout bounds every command round-trip (default 5s)
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// KeepAlive is the TCP keep-alive period and the watchdog PING interval (default 30s)
	KeepAlive time.Duration `mapstructure:"keep_alive"`

	// Family selects the address family: tcp, tcp4 or tcp6 (default tcp)
	Family string `mapstructure:"family"`

	// PoolSize per node (default 10)
	PoolSize int `mapstructure:"pool_size"`

	// MaxRetries is the go-redis per-command retry count.
	// 0 keeps the go-redis default, -1 disables.
	MaxRetries int `mapstructure:"max_retries"`

	// MaxReconnectAttempts caps automatic reconnection after a loss (default 10)
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts"`

	// ReconnectBaseDelay is the first backoff delay, doubled per attempt (default 1s)
	ReconnectBaseDelay time.Duration `mapstructure:"reconnect_base_delay"`

	// ReconnectMaxDelay caps a single backoff delay (default 30s)
	ReconnectMaxDelay time.Duration `mapstructure:"reconnect_max_delay"`
}

func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "redis://localhost:6379/0"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 5 * time.Second
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.Family == "" {
		c.Family = "tcp"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.ConnectTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.CommandTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.KeepAlive, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Family, validation.In("tcp", "tcp4", "tcp6")),
		validation.Field(&c.PoolSize, validation.Min(1)),
		validation.Field(&c.MaxRetries, validation.Min(-1)),
		validation.Field(&c.MaxReconnectAttempts, validation.Min(1)),
		validation.Field(&c.ReconnectBaseDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ReconnectMaxDelay, validation.Required, validation.Min(c.ReconnectBaseDelay)),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	if _, err := ParseTarget(c.URL); err != nil {
		return err
	}
	return nil
}
