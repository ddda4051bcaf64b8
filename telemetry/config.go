package telemetry

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"

	SamplerAlwaysOn  = "always_on"
	SamplerAlwaysOff = "always_off"
	SamplerRatio     = "trace_id_ratio"
)

// Config controls OpenTelemetry export. When disabled the global otel
// providers are left untouched.
type Config struct {
	Enabled        bool                   `mapstructure:"enabled"`
	ServiceName    string                 `mapstructure:"service_name"`
	ServiceVersion string                 `mapstructure:"service_version"`
	Exporter       ExporterConfig         `mapstructure:"exporter"`
	Sampler        SamplerConfig          `mapstructure:"sampler"`
	ResourceAttrs  map[string]interface{} `mapstructure:"resource_attributes"` // nested maps are flattened with dots

	// ExportInterval between periodic metric exports (default 15s)
	ExportInterval time.Duration `mapstructure:"export_interval"`

	// Tracing turns on the tracer provider in addition to metrics
	Tracing bool `mapstructure:"tracing"`
}

type ExporterConfig struct {
	Type     string            `mapstructure:"type"` // otlp or stdout
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Ratio float64 `mapstructure:"ratio"` // only read for trace_id_ratio
}

func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "go-yogan-cache"
	}
	if c.Exporter.Type == "" {
		c.Exporter.Type = ExporterStdout
	}
	if c.Exporter.Timeout == 0 {
		c.Exporter.Timeout = 10 * time.Second
	}
	if c.Sampler.Type == "" {
		c.Sampler.Type = SamplerAlwaysOn
	}
	if c.ExportInterval == 0 {
		c.ExportInterval = 15 * time.Second
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Exporter),
		validation.Field(&c.Sampler),
		validation.Field(&c.ExportInterval, validation.Required, validation.Min(time.Millisecond)),
	)
}

func (e ExporterConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In(ExporterOTLP, ExporterStdout)),
		validation.Field(&e.Endpoint, validation.When(e.Type == ExporterOTLP, validation.Required)),
		validation.Field(&e.Timeout, validation.Required),
	)
}

func (s SamplerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Type, validation.Required,
			validation.In(SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio)),
		validation.Field(&s.Ratio, validation.Min(0.0), validation.Max(1.0)),
	)
}
