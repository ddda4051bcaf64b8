package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-cache/health"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

const (
	criticalHitRate     = 0.2
	criticalErrorRate   = 0.1
	criticalAvgResponse = 500 * time.Millisecond

	warningHitRate     = 0.5
	warningErrorRate   = 0.05
	warningAvgResponse = 100 * time.Millisecond
)

// Health is the rollup of the latest sample.
type Health struct {
	Status Status   `json:"status"`
	Issues []string `json:"issues,omitempty"`
	Latest *Sample  `json:"latest,omitempty"`
}

// HealthStatus grades the latest sample.
func (m *Monitor) HealthStatus() Health {
	return Assess(m.Latest(), m.info != nil, m.cfg.Alerts.SkipIdleHitRate)
}

func hitRateApplies(s *Sample, skipIdle bool) bool {
	return !skipIdle || s.Overall.Hits+s.Overall.Misses > 0
}

// Assess grades s. remote says whether a remote tier is configured, in
// which case zero connected clients is critical. skipIdle leaves the hit
// rate ungraded when s saw no gets.
func Assess(s *Sample, remote, skipIdle bool) Health {
	if s == nil {
		return Health{Status: StatusCritical, Issues: []string{"no metrics collected yet"}}
	}

	var critical, warning []string
	gradeHitRate := hitRateApplies(s, skipIdle)
	perf := s.Performance

	if remote && s.Remote.ConnectedClients == 0 {
		critical = append(critical, "remote cache has no connected clients")
	}
	switch {
	case gradeHitRate && s.Overall.HitRate < criticalHitRate:
		critical = append(critical, fmt.Sprintf("hit rate %.2f below %.2f", s.Overall.HitRate, criticalHitRate))
	case gradeHitRate && s.Overall.HitRate < warningHitRate:
		warning = append(warning, fmt.Sprintf("hit rate %.2f below %.2f", s.Overall.HitRate, warningHitRate))
	}
	switch {
	case perf.ErrorRate > criticalErrorRate:
		critical = append(critical, fmt.Sprintf("error rate %.2f above %.2f", perf.ErrorRate, criticalErrorRate))
	case perf.ErrorRate > warningErrorRate:
		warning = append(warning, fmt.Sprintf("error rate %.2f above %.2f", perf.ErrorRate, warningErrorRate))
	}
	switch avg := perf.AvgResponse(); {
	case avg > criticalAvgResponse:
		critical = append(critical, fmt.Sprintf("average response %s above %s", avg, criticalAvgResponse))
	case avg > warningAvgResponse:
		warning = append(warning, fmt.Sprintf("average response %s above %s", avg, warningAvgResponse))
	}

	h := Health{Status: StatusHealthy, Latest: s}
	switch {
	case len(critical) > 0:
		h.Status = StatusCritical
		h.Issues = append(critical, warning...)
	case len(warning) > 0:
		h.Status = StatusWarning
		h.Issues = warning
	}
	return h
}

// HealthChecker exposes the rollup as a named health check. Warning is
// reported as degraded, critical as unhealthy.
type HealthChecker struct {
	monitor *Monitor
}

func NewHealthChecker(m *Monitor) *HealthChecker {
	return &HealthChecker{monitor: m}
}

func (h *HealthChecker) Name() string {
	return "cache"
}

func (h *HealthChecker) Check(ctx context.Context) error {
	hs := h.monitor.HealthStatus()
	switch hs.Status {
	case StatusCritical:
		return ErrUnhealthy.WithMsg(strings.Join(hs.Issues, "; "))
	case StatusWarning:
		return health.Degraded(ErrDegraded.WithMsg(strings.Join(hs.Issues, "; ")))
	default:
		return nil
	}
}
