package monitor

import (
	"context"
	"testing"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestRegisterMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	stats := &fakeStats{stats: cache.Stats{Hits: 1, Misses: 9, HitRate: 0.1, MemorySize: 7}}
	m := newTestMonitor(t, Config{}, stats, nil)
	require.NoError(t, m.RegisterMetrics(meter))

	got := collectMetrics(t, reader)
	_, ok := got["cache_hit_rate"]
	assert.False(t, ok, "no gauges before the first sample")

	m.TrackOperation(0, false)
	m.CollectMetrics(context.Background())
	got = collectMetrics(t, reader)

	hitRate, ok := got["cache_hit_rate"].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, hitRate.DataPoints, 1)
	assert.InDelta(t, 0.1, hitRate.DataPoints[0].Value, 1e-9)

	errRate, ok := got["cache_error_rate"].(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.InDelta(t, 1.0, errRate.DataPoints[0].Value, 1e-9)

	entries, ok := got["cache_memory_entries"].(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(7), entries.DataPoints[0].Value)

	alerts, ok := got["cache_alerts_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range alerts.DataPoints {
		total += dp.Value
	}
	// low hit rate and high error rate
	assert.Equal(t, int64(2), total)
	assert.Len(t, alerts.DataPoints, 2)
}
