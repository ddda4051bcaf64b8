package monitor

import (
	"context"
	"errors"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TrackingHook reports every remote command to the monitor. A nil reply
// (key not found) counts as success.
func (m *Monitor) TrackingHook() goredis.Hook {
	return &trackingHook{monitor: m}
}

type trackingHook struct {
	monitor *Monitor
}

func (h *trackingHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *trackingHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.monitor.TrackOperation(time.Since(start), succeeded(err))
		return err
	}
}

// ProcessPipelineHook counts a pipeline as one operation.
func (h *trackingHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.monitor.TrackOperation(time.Since(start), succeeded(err))
		return err
	}
}

func succeeded(err error) bool {
	return err == nil || errors.Is(err, goredis.Nil)
}
