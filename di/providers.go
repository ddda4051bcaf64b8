package di

import (
	"context"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/config"
	"github.com/KOMKZ/go-yogan-cache/health"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/KOMKZ/go-yogan-cache/monitor"
	"github.com/KOMKZ/go-yogan-cache/pattern"
	"github.com/KOMKZ/go-yogan-cache/redis"
	"github.com/KOMKZ/go-yogan-cache/telemetry"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/KOMKZ/go-yogan-cache"
	healthCheckTimeout  = 5 * time.Second
)

// ProvideSettings registers an already loaded configuration.
func ProvideSettings(i do.Injector, s config.Settings) {
	do.ProvideValue(i, s)
}

// ProvideLoggerManager builds the logger manager from settings, falling
// back to the defaults when no settings are registered.
func ProvideLoggerManager(i do.Injector) (*logger.Manager, error) {
	s, err := do.Invoke[config.Settings](i)
	if err != nil {
		return logger.NewManager(logger.DefaultManagerConfig()), nil
	}
	return logger.NewManager(s.Logger), nil
}

// ProvideLogger returns a provider for the named module logger.
func ProvideLogger(module string) func(do.Injector) (*logger.CtxZapLogger, error) {
	return func(i do.Injector) (*logger.CtxZapLogger, error) {
		mgr, err := do.Invoke[*logger.Manager](i)
		if err != nil {
			return logger.GetLogger(module), nil
		}
		return mgr.GetLogger(module), nil
	}
}

// ProvideTelemetry builds the otel providers from settings. A disabled
// provider falls back to the global otel providers.
func ProvideTelemetry(i do.Injector) (*telemetry.Provider, error) {
	var cfg telemetry.Config
	if s, err := do.Invoke[config.Settings](i); err == nil {
		cfg = s.Telemetry
	}
	log := do.MustInvokeNamed[*logger.CtxZapLogger](i, telemetry.ModuleName)
	return telemetry.New(context.Background(), cfg, log)
}

// ProvideMeter takes its meter from the telemetry provider. Register a
// metric.Meter value first to export elsewhere.
func ProvideMeter(i do.Injector) (metric.Meter, error) {
	p, err := do.Invoke[*telemetry.Provider](i)
	if err != nil {
		return nil, err
	}
	return p.Meter(instrumentationName), nil
}

func ProvideTracer(i do.Injector) (trace.Tracer, error) {
	p, err := do.Invoke[*telemetry.Provider](i)
	if err != nil {
		return nil, err
	}
	return p.Tracer(instrumentationName), nil
}

// ProvideConnection builds the redis connection with command metrics
// attached. It returns nil in memory mode.
func ProvideConnection(i do.Injector) (*redis.Connection, error) {
	s, err := do.Invoke[config.Settings](i)
	if err != nil {
		return nil, err
	}
	if !s.RemoteEnabled() {
		return nil, nil
	}

	log := do.MustInvokeNamed[*logger.CtxZapLogger](i, redis.ModuleName)
	conn, err := redis.NewConnection(s.Redis, log)
	if err != nil {
		return nil, err
	}

	meter := do.MustInvoke[metric.Meter](i)
	metrics, err := redis.NewMetrics(meter, conn)
	if err != nil {
		return nil, err
	}
	conn.AddHook(metrics.Hook())
	return conn, nil
}

// ProvideManager builds the tiered cache manager, memory-only when there
// is no connection.
func ProvideManager(i do.Injector) (*cache.Manager, error) {
	s, err := do.Invoke[config.Settings](i)
	if err != nil {
		return nil, err
	}
	conn, err := do.Invoke[*redis.Connection](i)
	if err != nil {
		return nil, err
	}

	var remote cache.RemoteStore
	if conn != nil {
		remote = cache.NewRedisStore(conn, s.Cache.KeyPrefix)
	}
	log := do.MustInvokeNamed[*logger.CtxZapLogger](i, cache.ModuleName)
	tracer := do.MustInvoke[trace.Tracer](i)
	return cache.NewManager(s.Cache, remote, log, cache.WithTracer(tracer))
}

// ProvideMonitor builds the monitor over the manager's stats, tracks every
// redis command through it and exports its gauges.
func ProvideMonitor(i do.Injector) (*monitor.Monitor, error) {
	s, err := do.Invoke[config.Settings](i)
	if err != nil {
		return nil, err
	}
	mgr, err := do.Invoke[*cache.Manager](i)
	if err != nil {
		return nil, err
	}
	conn, err := do.Invoke[*redis.Connection](i)
	if err != nil {
		return nil, err
	}

	var info monitor.InfoSource
	if conn != nil {
		info = conn
	}
	log := do.MustInvokeNamed[*logger.CtxZapLogger](i, monitor.ModuleName)
	m, err := monitor.NewMonitor(s.Monitor, mgr, info, log)
	if err != nil {
		return nil, err
	}
	if conn != nil {
		conn.AddHook(m.TrackingHook())
	}
	if err := m.RegisterMetrics(do.MustInvoke[metric.Meter](i)); err != nil {
		return nil, err
	}
	return m, nil
}

// ProvideHealth aggregates the monitor rollup and, in tiered mode, the
// redis ping check.
func ProvideHealth(i do.Injector) (*health.Aggregator, error) {
	m, err := do.Invoke[*monitor.Monitor](i)
	if err != nil {
		return nil, err
	}
	conn, err := do.Invoke[*redis.Connection](i)
	if err != nil {
		return nil, err
	}

	agg := health.NewAggregator(healthCheckTimeout)
	agg.Register(monitor.NewHealthChecker(m))
	if conn != nil {
		agg.Register(redis.NewHealthChecker(conn))
	}
	if s, err := do.Invoke[config.Settings](i); err == nil {
		agg.SetMetadata("mode", s.Mode)
	}
	return agg, nil
}

// Register installs every provider not already present. Values registered
// beforehand (a metric.Meter, a *logger.Manager, a *telemetry.Provider)
// take precedence.
func Register(i do.Injector) {
	provideOnce(i, ProvideLoggerManager)
	provideOnce(i, ProvideTelemetry)
	provideOnce(i, ProvideMeter)
	provideOnce(i, ProvideTracer)
	modules := []string{cache.ModuleName, redis.ModuleName, monitor.ModuleName, pattern.ModuleName, telemetry.ModuleName}
	for _, module := range modules {
		if !serviceExists[*logger.CtxZapLogger](i, module) {
			do.ProvideNamed(i, module, ProvideLogger(module))
		}
	}
	provideOnce(i, ProvideConnection)
	provideOnce(i, ProvideManager)
	provideOnce(i, ProvideMonitor)
	provideOnce(i, ProvideHealth)
}

func provideOnce[T any](i do.Injector, p do.Provider[T]) {
	if !serviceExists[T](i, "") {
		do.Provide(i, p)
	}
}

func serviceExists[T any](i do.Injector, name string) bool {
	if name == "" {
		name = do.NameOf[T]()
	}
	for _, d := range i.ListProvidedServices() {
		if d.Service == name {
			return true
		}
	}
	return false
}
