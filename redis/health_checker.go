package redis

import (
	"context"
	"fmt"
)

// HealthChecker reports the remote tier as a named check.
type HealthChecker struct {
	conn *Connection
}

func NewHealthChecker(conn *Connection) *HealthChecker {
	return &HealthChecker{conn: conn}
}

func (h *HealthChecker) Name() string {
	return "redis"
}

func (h *HealthChecker) Check(ctx context.Context) error {
	if h.conn == nil {
		return fmt.Errorf("redis connection not initialized")
	}
	if !h.conn.IsReady() {
		return ErrNotConnected.WithMsgf("redis %s", h.conn.State())
	}
	return h.conn.Ping(ctx)
}
