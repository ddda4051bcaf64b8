package monitor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterMetrics exports the latest sample as observable gauges and
// counts alerts by severity. Gauges report nothing before the first sample.
func (m *Monitor) RegisterMetrics(meter metric.Meter) error {
	hitRate, err := meter.Float64ObservableGauge("cache_hit_rate",
		metric.WithDescription("Overall cache hit rate of the latest sample"))
	if err != nil {
		return err
	}
	errorRate, err := meter.Float64ObservableGauge("cache_error_rate",
		metric.WithDescription("Failed operations over tracked operations"))
	if err != nil {
		return err
	}
	avgResponse, err := meter.Float64ObservableGauge("cache_avg_response_ms",
		metric.WithDescription("Average response time over the tracking window"),
		metric.WithUnit("ms"))
	if err != nil {
		return err
	}
	throughput, err := meter.Float64ObservableGauge("cache_throughput",
		metric.WithDescription("Tracked operations per second since the previous sample"),
		metric.WithUnit("{operation}/s"))
	if err != nil {
		return err
	}
	entries, err := meter.Int64ObservableGauge("cache_memory_entries",
		metric.WithDescription("Entries held by the memory tier"),
		metric.WithUnit("{entry}"))
	if err != nil {
		return err
	}
	alerts, err := meter.Int64Counter("cache_alerts_total",
		metric.WithDescription("Alerts raised by the cache monitor"),
		metric.WithUnit("{alert}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := m.Latest()
		if s == nil {
			return nil
		}
		o.ObserveFloat64(hitRate, s.Overall.HitRate)
		o.ObserveFloat64(errorRate, s.Performance.ErrorRate)
		o.ObserveFloat64(avgResponse, s.Performance.AvgResponseMs)
		o.ObserveFloat64(throughput, s.Performance.Throughput)
		o.ObserveInt64(entries, int64(s.Memory.Size))
		return nil
	}, hitRate, errorRate, avgResponse, throughput, entries)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.alertHook = func(a Alert) {
		alerts.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("severity", string(a.Severity)),
			attribute.String("rule", a.Rule),
		))
	}
	m.mu.Unlock()
	return nil
}
