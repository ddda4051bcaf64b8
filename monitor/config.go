package monitor

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config for the sampler.
type Config struct {
	// Interval between scheduled collections (default 30s)
	Interval time.Duration `mapstructure:"interval"`

	// HistorySize bounds kept samples (default 1000)
	HistorySize int `mapstructure:"history_size"`

	// AlertHistorySize bounds kept alerts (default 100)
	AlertHistorySize int `mapstructure:"alert_history_size"`

	// ResponseWindow is how many recent response times feed the averages (default 1000)
	ResponseWindow int `mapstructure:"response_window"`

	// SlowQueryThreshold marks an operation as slow (default 100ms)
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`

	Alerts AlertThresholds `mapstructure:"alerts"`
}

// AlertThresholds drive EvaluateAlerts.
type AlertThresholds struct {
	MinHitRate      float64       `mapstructure:"min_hit_rate"`
	MaxErrorRate    float64       `mapstructure:"max_error_rate"`
	MaxAvgResponse  time.Duration `mapstructure:"max_avg_response"`
	MaxRemoteMemory int64         `mapstructure:"max_remote_memory"`
	MaxSlowQueries  int64         `mapstructure:"max_slow_queries"`

	// SkipIdleHitRate suspends the hit-rate rules of alerts and health while
	// a sample has seen no gets. An idle cache otherwise reads as rate 0.
	SkipIdleHitRate bool `mapstructure:"skip_idle_hit_rate"`
}

func (c *Config) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = 30 * time.Second
	}
	if c.HistorySize == 0 {
		c.HistorySize = 1000
	}
	if c.AlertHistorySize == 0 {
		c.AlertHistorySize = 100
	}
	if c.ResponseWindow == 0 {
		c.ResponseWindow = 1000
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = 100 * time.Millisecond
	}
	if c.Alerts.MinHitRate == 0 {
		c.Alerts.MinHitRate = 0.3
	}
	if c.Alerts.MaxErrorRate == 0 {
		c.Alerts.MaxErrorRate = 0.05
	}
	if c.Alerts.MaxAvgResponse == 0 {
		c.Alerts.MaxAvgResponse = 200 * time.Millisecond
	}
	if c.Alerts.MaxRemoteMemory == 0 {
		c.Alerts.MaxRemoteMemory = 500 * 1024 * 1024
	}
	if c.Alerts.MaxSlowQueries == 0 {
		c.Alerts.MaxSlowQueries = 10
	}
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.HistorySize, validation.Required, validation.Min(1)),
		validation.Field(&c.AlertHistorySize, validation.Required, validation.Min(1)),
		validation.Field(&c.ResponseWindow, validation.Required, validation.Min(1)),
		validation.Field(&c.SlowQueryThreshold, validation.Required, validation.Min(time.Microsecond)),
		validation.Field(&c.Alerts),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	return nil
}

func (a AlertThresholds) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.MinHitRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&a.MaxErrorRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&a.MaxAvgResponse, validation.Min(time.Duration(0))),
		validation.Field(&a.MaxRemoteMemory, validation.Min(int64(0))),
		validation.Field(&a.MaxSlowQueries, validation.Min(int64(0))),
	)
}
