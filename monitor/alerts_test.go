package monitor

import (
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func rules(alerts []Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Rule)
	}
	return out
}

func TestEvaluateAlerts(t *testing.T) {
	traffic := OverallSample{Hits: 9, Misses: 1, HitRate: 0.9}

	tests := []struct {
		name   string
		cfg    Config
		sample Sample
		want   []string
	}{
		{
			name:   "healthy",
			sample: Sample{Overall: traffic},
			want:   []string{},
		},
		{
			name:   "idle cache reads as zero hit rate",
			sample: Sample{},
			want:   []string{RuleLowHitRate},
		},
		{
			name:   "idle cache skipped when configured",
			cfg:    Config{Alerts: AlertThresholds{SkipIdleHitRate: true}},
			sample: Sample{},
			want:   []string{},
		},
		{
			name:   "skip idle still grades traffic",
			cfg:    Config{Alerts: AlertThresholds{SkipIdleHitRate: true}},
			sample: Sample{Overall: OverallSample{Hits: 1, Misses: 9, HitRate: 0.1}},
			want:   []string{RuleLowHitRate},
		},
		{
			name:   "low hit rate",
			sample: Sample{Overall: OverallSample{Hits: 1, Misses: 9, HitRate: 0.1}},
			want:   []string{RuleLowHitRate},
		},
		{
			name:   "high error rate",
			sample: Sample{Overall: traffic, Performance: PerformanceSample{ErrorRate: 0.2}},
			want:   []string{RuleHighErrorRate},
		},
		{
			name:   "slow average response",
			sample: Sample{Overall: traffic, Performance: PerformanceSample{AvgResponseMs: 250}},
			want:   []string{RuleSlowResponse},
		},
		{
			name:   "remote memory",
			sample: Sample{Overall: traffic, Remote: RemoteSample{UsedMemory: 600 << 20}},
			want:   []string{RuleHighMemoryUsage},
		},
		{
			name:   "slow queries",
			sample: Sample{Overall: traffic, Performance: PerformanceSample{SlowQueries: 11}},
			want:   []string{RuleSlowQueries},
		},
		{
			name: "independent rules all fire",
			sample: Sample{
				Overall:     OverallSample{Hits: 1, Misses: 9, HitRate: 0.1},
				Remote:      RemoteSample{UsedMemory: 600 << 20},
				Performance: PerformanceSample{ErrorRate: 0.5, AvgResponseMs: 300, SlowQueries: 20},
			},
			want: []string{RuleLowHitRate, RuleHighErrorRate, RuleSlowResponse, RuleHighMemoryUsage, RuleSlowQueries},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(t, tt.cfg, &fakeStats{}, nil)
			s := tt.sample
			fired := m.EvaluateAlerts(&s)
			assert.Equal(t, tt.want, rules(fired))
			assert.Len(t, m.Alerts(), len(tt.want))
		})
	}
}

func TestEvaluateAlerts_SeverityAndLogging(t *testing.T) {
	log, logs := logger.NewObserved("monitor", zapcore.WarnLevel)
	m, err := NewMonitor(Config{}, &fakeStats{}, nil, log)
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &Sample{
		Timestamp:   ts,
		Overall:     OverallSample{Hits: 1, Misses: 9, HitRate: 0.1},
		Performance: PerformanceSample{ErrorRate: 0.5},
	}
	fired := m.EvaluateAlerts(s)
	require.Len(t, fired, 2)

	assert.Equal(t, SeverityWarning, fired[0].Severity)
	assert.Equal(t, SeverityError, fired[1].Severity)
	assert.NotEmpty(t, fired[0].ID)
	assert.NotEqual(t, fired[0].ID, fired[1].ID)
	assert.Equal(t, ts, fired[0].Timestamp)
	assert.Same(t, s, fired[0].Sample)
	assert.Contains(t, fired[0].Message, "10.00%")

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	entry := logs.FilterLevelExact(zapcore.ErrorLevel).All()[0]
	assert.Equal(t, RuleHighErrorRate, entry.ContextMap()["rule"])
}

func TestEvaluateAlerts_CustomThresholds(t *testing.T) {
	cfg := Config{Alerts: AlertThresholds{MinHitRate: 0.95, MaxSlowQueries: 100}}
	m := newTestMonitor(t, cfg, &fakeStats{}, nil)

	fired := m.EvaluateAlerts(&Sample{
		Overall:     OverallSample{Hits: 9, Misses: 1, HitRate: 0.9},
		Performance: PerformanceSample{SlowQueries: 50},
	})
	assert.Equal(t, []string{RuleLowHitRate}, rules(fired))
}

func TestAlertHistoryIsBounded(t *testing.T) {
	m := newTestMonitor(t, Config{AlertHistorySize: 2}, &fakeStats{}, nil)
	for i := 0; i < 5; i++ {
		m.EvaluateAlerts(&Sample{
			Overall:     OverallSample{Hits: 1, Misses: 0, HitRate: 1},
			Performance: PerformanceSample{ErrorRate: float64(i+1) / 10},
		})
	}
	alerts := m.Alerts()
	require.Len(t, alerts, 2)
	assert.Contains(t, alerts[1].Message, "50.00%")

	assert.Nil(t, m.EvaluateAlerts(nil))
}
