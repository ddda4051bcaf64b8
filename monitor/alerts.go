package monitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert rule names.
const (
	RuleLowHitRate      = "low_hit_rate"
	RuleHighErrorRate   = "high_error_rate"
	RuleSlowResponse    = "slow_response"
	RuleHighMemoryUsage = "high_memory_usage"
	RuleSlowQueries     = "slow_queries"
)

// Alert is one threshold violation.
type Alert struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Rule      string    `json:"rule"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Sample    *Sample   `json:"-"`
}

// EvaluateAlerts checks s against every rule, records and logs what fired.
// Rules are independent; nothing is deduplicated.
func (m *Monitor) EvaluateAlerts(s *Sample) []Alert {
	if s == nil {
		return nil
	}
	th := m.cfg.Alerts
	var fired []Alert

	raise := func(sev Severity, rule, msg string) {
		fired = append(fired, Alert{
			ID:        uuid.NewString(),
			Severity:  sev,
			Rule:      rule,
			Message:   msg,
			Timestamp: s.Timestamp,
			Sample:    s,
		})
	}

	if hitRateApplies(s, th.SkipIdleHitRate) && s.Overall.HitRate < th.MinHitRate {
		raise(SeverityWarning, RuleLowHitRate,
			fmt.Sprintf("cache hit rate %.2f%% below %.2f%%", s.Overall.HitRate*100, th.MinHitRate*100))
	}
	if s.Performance.ErrorRate > th.MaxErrorRate {
		raise(SeverityError, RuleHighErrorRate,
			fmt.Sprintf("cache error rate %.2f%% above %.2f%%", s.Performance.ErrorRate*100, th.MaxErrorRate*100))
	}
	if s.Performance.AvgResponse() > th.MaxAvgResponse {
		raise(SeverityWarning, RuleSlowResponse,
			fmt.Sprintf("average response %.2fms above %s", s.Performance.AvgResponseMs, th.MaxAvgResponse))
	}
	if s.Remote.UsedMemory > th.MaxRemoteMemory {
		raise(SeverityWarning, RuleHighMemoryUsage,
			fmt.Sprintf("remote memory %dMB above %dMB", s.Remote.UsedMemory>>20, th.MaxRemoteMemory>>20))
	}
	if s.Performance.SlowQueries > th.MaxSlowQueries {
		raise(SeverityWarning, RuleSlowQueries,
			fmt.Sprintf("%d slow queries above limit %d", s.Performance.SlowQueries, th.MaxSlowQueries))
	}

	if len(fired) == 0 {
		return nil
	}

	m.mu.Lock()
	for _, a := range fired {
		m.alerts.push(a)
	}
	hook := m.alertHook
	m.mu.Unlock()

	for _, a := range fired {
		fields := []zap.Field{
			zap.String("alert_id", a.ID),
			zap.String("rule", a.Rule),
			zap.String("severity", string(a.Severity)),
		}
		if a.Severity == SeverityError {
			m.logger.Error(a.Message, fields...)
		} else {
			m.logger.Warn(a.Message, fields...)
		}
		if hook != nil {
			hook(a)
		}
	}
	return fired
}
