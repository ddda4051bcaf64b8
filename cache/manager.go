package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-cache/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/KOMKZ/go-yogan-cache/cache"

var (
	attrKey  = attribute.Key("cache.key")
	attrTier = attribute.Key("cache.tier")
	attrHit  = attribute.Key("cache.hit")
	attrTags = attribute.Key("cache.tags")
)

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s Serializer) ManagerOption {
	return func(m *Manager) {
		m.serializer = s
	}
}

// WithTracer records a span per cache operation.
func WithTracer(t trace.Tracer) ManagerOption {
	return func(m *Manager) {
		m.tracer = t
	}
}

// Manager fronts the remote tier with the memory tier. Remote failures
// degrade to misses and are never returned to callers.
type Manager struct {
	cfg        Config
	memory     *MemoryStore
	remote     RemoteStore
	serializer Serializer
	logger     *logger.CtxZapLogger
	tracer     trace.Tracer
	stats      counters

	closeOnce sync.Once
}

var _ Cache = (*Manager)(nil)

// NewManager builds a manager. A nil remote gives a memory-only cache.
func NewManager(cfg Config, remote RemoteStore, log *logger.CtxZapLogger, opts ...ManagerOption) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}

	m := &Manager{
		cfg:        cfg,
		memory:     NewMemoryStore(cfg.MaxEntries, cfg.Shards, cfg.SweepInterval),
		remote:     remote,
		serializer: NewJSONSerializer(),
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) Serializer() Serializer {
	return m.serializer
}

// TTL resolves the memory tier TTL for opts.
func (m *Manager) TTL(opts Options) time.Duration {
	if opts.MemoryTTL > 0 {
		return opts.MemoryTTL
	}
	return m.cfg.MemoryTTL
}

func (m *Manager) remoteTTL(opts Options) time.Duration {
	if opts.RemoteTTL > 0 {
		return opts.RemoteTTL
	}
	return m.cfg.RemoteTTL
}

func (m *Manager) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "cache."+op, trace.WithAttributes(attrs...))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (m *Manager) remoteUsable(opts Options) bool {
	return !opts.SkipRemote && m.remote != nil && m.remote.Available()
}

// Get looks up the memory tier, then the remote tier. A remote hit is
// copied into the memory tier together with its tags, unless a write,
// delete or invalidation reached the memory shard while the remote read was
// in flight.
func (m *Manager) Get(ctx context.Context, key string, opts Options) ([]byte, bool, error) {
	fullKey, err := LogicalKey(key, opts.Namespace)
	if err != nil {
		return nil, false, err
	}
	ctx, span := m.startSpan(ctx, "get", attrKey.String(fullKey))
	defer span.End()

	if !opts.SkipMemory {
		if item, err := m.memory.Get(ctx, fullKey); err == nil {
			m.stats.memoryHits.Add(1)
			span.SetAttributes(attrHit.Bool(true), attrTier.String("memory"))
			return item.Value, true, nil
		}
		m.stats.memoryMisses.Add(1)
	}

	if !m.remoteUsable(opts) {
		m.stats.misses.Add(1)
		span.SetAttributes(attrHit.Bool(false))
		return nil, false, nil
	}

	epoch := m.memory.Epoch(fullKey)
	item, err := m.remote.Get(ctx, fullKey)
	switch {
	case err == nil:
		m.stats.remoteHits.Add(1)
		if !opts.SkipMemory {
			m.memory.SetIfUnchanged(ctx, fullKey, item.Value, m.TTL(opts), item.Tags, epoch)
		}
		span.SetAttributes(attrHit.Bool(true), attrTier.String("remote"))
		return item.Value, true, nil
	case errors.Is(err, ErrCacheMiss):
		m.stats.remoteMisses.Add(1)
	default:
		m.stats.remoteMisses.Add(1)
		m.stats.remoteErrors.Add(1)
		recordSpanError(span, err)
		m.logger.WarnCtx(ctx, "remote cache get failed",
			zap.String("key", fullKey), zap.Error(err))
	}
	m.stats.misses.Add(1)
	span.SetAttributes(attrHit.Bool(false))
	return nil, false, nil
}

// Set writes each tier independently, remote first so that a concurrent
// fill from the old remote value cannot overwrite the new memory entry.
func (m *Manager) Set(ctx context.Context, key string, value []byte, opts Options) error {
	fullKey, err := LogicalKey(key, opts.Namespace)
	if err != nil {
		return err
	}
	if err := ValidateTags(opts.Tags); err != nil {
		return err
	}
	ctx, span := m.startSpan(ctx, "set", attrKey.String(fullKey), attrTags.StringSlice(opts.Tags))
	defer span.End()

	if m.remoteUsable(opts) {
		if err := m.remote.Set(ctx, fullKey, value, m.remoteTTL(opts), opts.Tags); err != nil {
			m.stats.remoteErrors.Add(1)
			recordSpanError(span, err)
			m.logger.WarnCtx(ctx, "remote cache set failed",
				zap.String("key", fullKey), zap.Error(err))
		}
	}
	if !opts.SkipMemory {
		_ = m.memory.Set(ctx, fullKey, value, m.TTL(opts), opts.Tags)
	}
	m.stats.sets.Add(1)
	return nil
}

// Delete removes key from both tiers, remote first. A missing key is not an
// error.
func (m *Manager) Delete(ctx context.Context, key, namespace string) error {
	fullKey, err := LogicalKey(key, namespace)
	if err != nil {
		return err
	}
	ctx, span := m.startSpan(ctx, "delete", attrKey.String(fullKey))
	defer span.End()

	if m.remoteUsable(Options{}) {
		if err := m.remote.Delete(ctx, fullKey); err != nil {
			m.stats.remoteErrors.Add(1)
			recordSpanError(span, err)
			m.logger.WarnCtx(ctx, "remote cache delete failed",
				zap.String("key", fullKey), zap.Error(err))
		}
	}
	_ = m.memory.Delete(ctx, fullKey)
	m.stats.deletes.Add(1)
	return nil
}

// InvalidateByTags removes every entry carrying any of tags from both tiers.
// Once it returns, no Get observes a value written before the call with
// one of tags.
func (m *Manager) InvalidateByTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	if err := ValidateTags(tags); err != nil {
		return err
	}
	ctx, span := m.startSpan(ctx, "invalidate", attrTags.StringSlice(tags))
	defer span.End()

	removed := 0
	if m.remoteUsable(Options{}) {
		n, err := m.remote.InvalidateTags(ctx, tags)
		removed += n
		if err != nil {
			m.stats.remoteErrors.Add(1)
			recordSpanError(span, err)
			m.logger.WarnCtx(ctx, "remote cache tag invalidation failed",
				zap.Strings("tags", tags), zap.Error(err))
		}
	}
	n, _ := m.memory.InvalidateTags(ctx, tags)
	removed += n
	m.stats.invalidations.Add(1)
	span.SetAttributes(attribute.Int("cache.removed", removed))
	m.logger.DebugCtx(ctx, "cache tags invalidated",
		zap.Strings("tags", tags), zap.Int("removed", removed))
	return nil
}

// Exists checks the tiers selected by opts without touching statistics.
func (m *Manager) Exists(ctx context.Context, key string, opts Options) (bool, error) {
	fullKey, err := LogicalKey(key, opts.Namespace)
	if err != nil {
		return false, err
	}

	if !opts.SkipMemory {
		if ok, _ := m.memory.Exists(ctx, fullKey); ok {
			return true, nil
		}
	}
	if !m.remoteUsable(opts) {
		return false, nil
	}
	ok, err := m.remote.Exists(ctx, fullKey)
	if err != nil {
		m.stats.remoteErrors.Add(1)
		m.logger.WarnCtx(ctx, "remote cache exists failed",
			zap.String("key", fullKey), zap.Error(err))
		return false, nil
	}
	return ok, nil
}

// Stats returns a snapshot of the counters and memory tier gauges.
func (m *Manager) Stats() Stats {
	s := m.stats.snapshot()
	s.MemorySize = m.memory.Len()
	s.MemoryTags = m.memory.TagCount()
	return s
}

func (m *Manager) ResetStats() {
	m.stats.reset()
}

// ClearMemory empties the memory tier only.
func (m *Manager) ClearMemory() {
	_ = m.memory.Clear(context.Background())
}

// Clear empties both tiers and resets statistics. Only remote keys under
// the configured prefix are removed.
func (m *Manager) Clear(ctx context.Context) error {
	defer m.stats.reset()
	defer m.memory.Clear(ctx)

	if m.remoteUsable(Options{}) {
		if err := m.remote.Clear(ctx); err != nil {
			return err
		}
	}
	m.logger.InfoCtx(ctx, "cache cleared")
	return nil
}

// Close stops the memory sweeper and closes the remote store. The redis
// connection behind the store is not closed.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		_ = m.memory.Close()
		if m.remote != nil {
			_ = m.remote.Close()
		}
	})
	return nil
}

func (m *Manager) Shutdown(ctx context.Context) error {
	return m.Close()
}
