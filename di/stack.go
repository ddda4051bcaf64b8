package di

import (
	"context"
	"errors"
	"sync"

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
	"go.uber.org/zap"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Stack is a resolved cache deployment.
type Stack struct {
	injector *do.RootScope
	settings config.Settings
	logger   *logger.CtxZapLogger
	logs     *logger.Manager

	conn      *redis.Connection
	cache     *cache.Manager
	monitor   *monitor.Monitor
	health    *health.Aggregator
	telemetry *telemetry.Provider

	mu         sync.Mutex
	refreshers []shutdowner
	writers    []shutdowner
	stopped    bool
}

// StackOption customizes the injector before resolution.
type StackOption func(do.Injector)

// WithMeter exports metrics through meter instead of the global provider.
func WithMeter(meter metric.Meter) StackOption {
	return func(i do.Injector) {
		do.ProvideValue(i, meter)
	}
}

// WithTelemetry replaces the provider built from settings.
func WithTelemetry(p *telemetry.Provider) StackOption {
	return func(i do.Injector) {
		do.ProvideValue(i, p)
	}
}

// WithLoggerManager replaces the logger manager built from settings.
func WithLoggerManager(m *logger.Manager) StackOption {
	return func(i do.Injector) {
		do.ProvideValue(i, m)
	}
}

// NewStack resolves every component from s. Nothing touches the network
// until Start.
func NewStack(s config.Settings, opts ...StackOption) (*Stack, error) {
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	injector := do.New()
	ProvideSettings(injector, s)
	for _, opt := range opts {
		opt(injector)
	}
	Register(injector)
	return Resolve(injector)
}

// Resolve builds a Stack from an injector prepared with Register.
func Resolve(injector *do.RootScope) (*Stack, error) {
	s, err := do.Invoke[config.Settings](injector)
	if err != nil {
		return nil, err
	}
	conn, err := do.Invoke[*redis.Connection](injector)
	if err != nil {
		return nil, err
	}
	mgr, err := do.Invoke[*cache.Manager](injector)
	if err != nil {
		return nil, err
	}
	mon, err := do.Invoke[*monitor.Monitor](injector)
	if err != nil {
		return nil, err
	}
	agg, err := do.Invoke[*health.Aggregator](injector)
	if err != nil {
		return nil, err
	}
	tp, err := do.Invoke[*telemetry.Provider](injector)
	if err != nil {
		return nil, err
	}

	return &Stack{
		injector:  injector,
		settings:  s,
		logger:    do.MustInvokeNamed[*logger.CtxZapLogger](injector, cache.ModuleName),
		logs:      do.MustInvoke[*logger.Manager](injector),
		conn:      conn,
		cache:     mgr,
		monitor:   mon,
		health:    agg,
		telemetry: tp,
	}, nil
}

func (s *Stack) Injector() *do.RootScope {
	return s.injector
}

func (s *Stack) Settings() config.Settings {
	return s.settings
}

// Connection is nil in memory mode.
func (s *Stack) Connection() *redis.Connection {
	return s.conn
}

func (s *Stack) Cache() *cache.Manager {
	return s.cache
}

func (s *Stack) Monitor() *monitor.Monitor {
	return s.monitor
}

func (s *Stack) Health() *health.Aggregator {
	return s.health
}

func (s *Stack) Telemetry() *telemetry.Provider {
	return s.telemetry
}

// Logger returns the named module logger of the stack's manager.
func (s *Stack) Logger(module string) *logger.CtxZapLogger {
	return s.logs.GetLogger(module)
}

// Start connects to redis and starts the monitor. A failed first connect
// is returned only when requireRemote is set; otherwise the stack keeps
// serving from memory and the redis health check reports the outage.
func (s *Stack) Start(ctx context.Context, requireRemote bool) error {
	if s.conn != nil {
		if err := s.conn.Connect(ctx); err != nil {
			if requireRemote {
				return err
			}
			s.logger.WarnCtx(ctx, "remote cache unavailable, serving from memory", zap.Error(err))
		}
	}
	return s.monitor.Start()
}

// Shutdown stops components in order: monitor, refresh-ahead, write-behind
// (final flush), cache manager, connection, telemetry export. Every step
// runs even when an earlier one fails.
func (s *Stack) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	refreshers, writers := s.refreshers, s.writers
	s.mu.Unlock()

	var errs []error
	errs = append(errs, s.monitor.Shutdown(ctx))
	for _, r := range refreshers {
		errs = append(errs, r.Shutdown(ctx))
	}
	for _, w := range writers {
		errs = append(errs, w.Shutdown(ctx))
	}
	errs = append(errs, s.cache.Shutdown(ctx))
	if s.conn != nil {
		errs = append(errs, s.conn.Shutdown(ctx))
	}
	errs = append(errs, s.telemetry.Shutdown(ctx))

	err := errors.Join(errs...)
	if err != nil {
		s.logger.ErrorCtx(ctx, "cache stack shutdown finished with errors", zap.Error(err))
	} else {
		s.logger.InfoCtx(ctx, "cache stack stopped")
	}
	s.logs.CloseAll()
	return err
}

func (s *Stack) track(kind *[]shutdowner, p shutdowner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return pattern.ErrClosed
	}
	*kind = append(*kind, p)
	return nil
}

// CacheAside builds a cache-aside accessor over the stack's cache.
func CacheAside[T any](s *Stack) *pattern.CacheAside[T] {
	return pattern.NewCacheAside[T](s.cache, s.Logger(pattern.ModuleName))
}

// WriteThrough builds a write-through accessor over the stack's cache.
func WriteThrough[T any](s *Stack) *pattern.WriteThrough[T] {
	return pattern.NewWriteThrough[T](s.cache, s.Logger(pattern.ModuleName))
}

// WriteBehind builds a write-behind buffer that the stack flushes on Shutdown.
func WriteBehind[T any](s *Stack) (*pattern.WriteBehind[T], error) {
	w, err := pattern.NewWriteBehind[T](s.cache, s.settings.Patterns.WriteBehind, s.Logger(pattern.ModuleName))
	if err != nil {
		return nil, err
	}
	if err := s.track(&s.writers, w); err != nil {
		_ = w.Shutdown(context.Background())
		return nil, err
	}
	return w, nil
}

// RefreshAhead builds a refresh-ahead accessor that the stack stops on Shutdown.
func RefreshAhead[T any](s *Stack) (*pattern.RefreshAhead[T], error) {
	r, err := pattern.NewRefreshAhead[T](s.cache, s.settings.Patterns.RefreshAhead, s.Logger(pattern.ModuleName))
	if err != nil {
		return nil, err
	}
	if err := s.track(&s.refreshers, r); err != nil {
		_ = r.Shutdown(context.Background())
		return nil, err
	}
	return r, nil
}
