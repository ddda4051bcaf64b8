package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exports command and connection instruments through OpenTelemetry.
type Metrics struct {
	commandsTotal   metric.Int64Counter
	commandDuration metric.Float64Histogram
	errorsTotal     metric.Int64Counter
}

// NewMetrics registers the instruments on meter. conn, when non-nil, also
// feeds the connection state and pool gauges.
func NewMetrics(meter metric.Meter, conn *Connection) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.commandsTotal, err = meter.Int64Counter(
		"redis_commands_total",
		metric.WithDescription("Total number of Redis commands executed"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	m.commandDuration, err = meter.Float64Histogram(
		"redis_command_duration_seconds",
		metric.WithDescription("Redis command duration distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.errorsTotal, err = meter.Int64Counter(
		"redis_errors_total",
		metric.WithDescription("Total number of failed Redis commands, misses excluded"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	if conn == nil {
		return m, nil
	}

	state, err := meter.Int64ObservableGauge(
		"redis_connection_state",
		metric.WithDescription("0 disconnected, 1 connecting, 2 ready"),
	)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64ObservableGauge(
		"redis_connections_active",
		metric.WithDescription("Connections in the pool that are in use"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	idle, err := meter.Int64ObservableGauge(
		"redis_connections_idle",
		metric.WithDescription("Idle connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(state, int64(conn.State()))
		client, err := conn.Client()
		if err != nil {
			return nil
		}
		ps := client.PoolStats()
		o.ObserveInt64(active, int64(ps.TotalConns-ps.IdleConns))
		o.ObserveInt64(idle, int64(ps.IdleConns))
		return nil
	}, state, active, idle)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCommand records one command. redis.Nil is a miss, not an error.
func (m *Metrics) RecordCommand(ctx context.Context, cmd string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("command", cmd))
	m.commandsTotal.Add(ctx, 1, attrs)
	m.commandDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil && !errors.Is(err, redis.Nil) {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

// Hook returns a go-redis hook feeding RecordCommand.
func (m *Metrics) Hook() redis.Hook {
	return &metricsHook{metrics: m}
}
