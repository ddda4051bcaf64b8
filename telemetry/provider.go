// Package telemetry builds the OpenTelemetry meter and tracer providers
// used by the cache stack.
package telemetry

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/KOMKZ/go-yogan-cache/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Option func(*Provider)

// WithWriter redirects the stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(p *Provider) {
		p.writer = w
	}
}

// Provider owns the SDK providers. A disabled provider hands out the
// global otel meters and tracers.
type Provider struct {
	cfg    Config
	writer io.Writer
	logger *logger.CtxZapLogger

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider

	shutdownOnce sync.Once
	shutdownErr  error
}

func New(ctx context.Context, cfg Config, log *logger.CtxZapLogger, opts ...Option) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, ErrInvalid.Wrap(err)
	}
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}

	p := &Provider{cfg: cfg, writer: os.Stdout, logger: log}
	for _, opt := range opts {
		opt(p)
	}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, ErrResource.Wrap(err)
	}

	metricExporter, err := newMetricExporter(ctx, cfg.Exporter, p.writer)
	if err != nil {
		return nil, ErrExporter.Wrap(err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(cfg.ExportInterval),
			sdkmetric.WithTimeout(cfg.Exporter.Timeout),
		)),
	)

	if cfg.Tracing {
		spanExporter, err := newSpanExporter(ctx, cfg.Exporter, p.writer)
		if err != nil {
			_ = p.meterProvider.Shutdown(ctx)
			return nil, ErrExporter.Wrap(err)
		}
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(newSampler(cfg.Sampler)),
			sdktrace.WithBatcher(spanExporter, sdktrace.WithExportTimeout(cfg.Exporter.Timeout)),
		)
	}

	log.InfoCtx(ctx, "telemetry enabled",
		zap.String("exporter", cfg.Exporter.Type),
		zap.String("service", cfg.ServiceName),
		zap.Bool("tracing", cfg.Tracing),
		zap.Duration("export_interval", cfg.ExportInterval))
	return p, nil
}

func (p *Provider) Enabled() bool {
	return p.meterProvider != nil
}

func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return p.meterProvider.Meter(name)
}

func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// ForceFlush exports everything buffered so far.
func (p *Provider) ForceFlush(ctx context.Context) error {
	var errs []error
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.ForceFlush(ctx))
	}
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops both providers. Later calls return the
// first result.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		var errs []error
		if p.tracerProvider != nil {
			errs = append(errs, p.tracerProvider.Shutdown(ctx))
		}
		if p.meterProvider != nil {
			errs = append(errs, p.meterProvider.Shutdown(ctx))
		}
		p.shutdownErr = errors.Join(errs...)
	})
	return p.shutdownErr
}
