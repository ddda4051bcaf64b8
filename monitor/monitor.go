// Package monitor samples cache statistics on a schedule, keeps a bounded
// history, raises threshold alerts and rolls everything up into a health
// status.
package monitor

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/KOMKZ/go-yogan-cache/redis"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StatsSource is implemented by *cache.Manager.
type StatsSource interface {
	Stats() cache.Stats
}

// InfoSource is implemented by *redis.Connection.
type InfoSource interface {
	IsReady() bool
	Info(ctx context.Context, sections ...string) (redis.ServerInfo, error)
}

// Monitor samples a cache manager and its remote server.
type Monitor struct {
	cfg     Config
	stats   StatsSource
	info    InfoSource
	logger  *logger.CtxZapLogger
	tracker *tracker
	now     func() time.Time

	mu             sync.RWMutex
	history        *ring[*Sample]
	alerts         *ring[Alert]
	lastCollect    time.Time
	lastQueryCount int64
	alertHook      func(Alert)

	schedMu   sync.Mutex
	scheduler gocron.Scheduler
}

// NewMonitor builds a stopped monitor. info may be nil for a memory-only cache.
func NewMonitor(cfg Config, stats StatsSource, info InfoSource, log *logger.CtxZapLogger) (*Monitor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}

	m := &Monitor{
		cfg:     cfg,
		stats:   stats,
		info:    info,
		logger:  log,
		tracker: newTracker(cfg.ResponseWindow, cfg.SlowQueryThreshold),
		now:     time.Now,
		history: newRing[*Sample](cfg.HistorySize),
		alerts:  newRing[Alert](cfg.AlertHistorySize),
	}
	m.lastCollect = m.now()
	return m, nil
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start schedules CollectMetrics every Interval. Starting twice is a no-op.
func (m *Monitor) Start() error {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	if m.scheduler != nil {
		m.logger.Warn("cache monitor already started")
		return nil
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(m.logger.ForScheduler()))
	if err != nil {
		return ErrScheduler.Wrap(err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(m.cfg.Interval),
		gocron.NewTask(func() {
			m.CollectMetrics(context.Background())
		}),
		gocron.WithName("cache-monitor-collect"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return ErrScheduler.Wrap(err)
	}
	s.Start()
	m.scheduler = s

	m.logger.Info("cache monitor started", zap.Duration("interval", m.cfg.Interval))
	return nil
}

// Stop halts scheduled collection. Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() error {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	if m.scheduler == nil {
		return nil
	}
	err := m.scheduler.Shutdown()
	m.scheduler = nil
	if err != nil {
		return ErrScheduler.Wrap(err)
	}
	m.logger.Info("cache monitor stopped")
	return nil
}

func (m *Monitor) Shutdown(ctx context.Context) error {
	return m.Stop()
}

// Running reports whether scheduled collection is active.
func (m *Monitor) Running() bool {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	return m.scheduler != nil
}

// TrackOperation records one cache or remote operation.
func (m *Monitor) TrackOperation(d time.Duration, success bool) {
	m.tracker.track(d, success)
}

// CollectMetrics takes a sample, stores it and evaluates alerts on it.
func (m *Monitor) CollectMetrics(ctx context.Context) *Sample {
	st := m.stats.Stats()
	perf := m.tracker.snapshot()

	sample := &Sample{
		Timestamp: m.now(),
		Memory: MemorySample{
			Hits:    st.MemoryHits,
			Misses:  st.MemoryMisses,
			HitRate: st.MemoryHitRate(),
			Size:    st.MemorySize,
			Tags:    st.MemoryTags,
		},
		Remote: RemoteSample{
			Hits:    st.RemoteHits,
			Misses:  st.RemoteMisses,
			HitRate: st.RemoteHitRate(),
			Errors:  st.RemoteErrors,
		},
		Overall: OverallSample{
			Hits:    st.Hits,
			Misses:  st.Misses,
			HitRate: st.HitRate,
			Sets:    st.Sets,
			Deletes: st.Deletes,
		},
		Performance: PerformanceSample{
			AvgResponseMs: float64(perf.avg) / float64(time.Millisecond),
			SlowQueries:   perf.slow,
			QueryCount:    perf.queries,
			ErrorCount:    perf.errors,
		},
	}
	if perf.queries > 0 {
		sample.Performance.ErrorRate = float64(perf.errors) / float64(perf.queries)
	}
	m.fillRemoteInfo(ctx, &sample.Remote)

	m.mu.Lock()
	elapsed := sample.Timestamp.Sub(m.lastCollect).Seconds()
	if elapsed > 0 {
		sample.Performance.Throughput = float64(perf.queries-m.lastQueryCount) / elapsed
	}
	m.lastCollect = sample.Timestamp
	m.lastQueryCount = perf.queries
	m.history.push(sample)
	m.mu.Unlock()

	m.EvaluateAlerts(sample)
	m.logger.DebugCtx(ctx, "cache metrics collected",
		zap.Float64("hit_rate", sample.Overall.HitRate),
		zap.Float64("error_rate", sample.Performance.ErrorRate),
		zap.Float64("avg_response_ms", sample.Performance.AvgResponseMs))
	return sample
}

func (m *Monitor) fillRemoteInfo(ctx context.Context, r *RemoteSample) {
	if m.info == nil {
		return
	}
	r.Connected = m.info.IsReady()
	if !r.Connected {
		return
	}

	info, err := m.info.Info(ctx)
	if err != nil {
		m.logger.WarnCtx(ctx, "cache monitor could not read server info", zap.Error(err))
		return
	}
	if v, ok := info.Float("used_memory"); ok {
		r.UsedMemory = int64(v)
	}
	if v, ok := info.Float("connected_clients"); ok {
		r.ConnectedClients = int64(v)
	}
	if v, ok := info.Float("total_commands_processed"); ok {
		r.TotalCommands = int64(v)
	}
	r.Keys = keyspaceKeys(info)
}

// keyspaceKeys sums keys=N over the dbX entries of the keyspace section.
func keyspaceKeys(info redis.ServerInfo) int64 {
	var total int64
	for k := range info {
		if !strings.HasPrefix(k, "db") {
			continue
		}
		raw, ok := info.String(k)
		if !ok {
			continue
		}
		for _, part := range strings.Split(raw, ",") {
			name, value, found := strings.Cut(part, "=")
			if !found || name != "keys" {
				continue
			}
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				total += n
			}
		}
	}
	return total
}

// Latest returns the newest sample, or nil before the first collection.
func (m *Monitor) Latest() *Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, _ := m.history.last()
	return s
}

// History returns samples oldest first.
func (m *Monitor) History() []*Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.slice()
}

// Alerts returns alerts oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.slice()
}

// ClearMetrics drops history, alerts and tracked operations.
func (m *Monitor) ClearMetrics() {
	m.tracker.reset()

	m.mu.Lock()
	m.history.reset()
	m.alerts.reset()
	m.lastCollect = m.now()
	m.lastQueryCount = 0
	m.mu.Unlock()
}
