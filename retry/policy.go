package retry

import "time"

// Policy bounds a backoff strategy by a maximum number of attempts.
// MaxAttempts <= 0 means unbounded.
type Policy struct {
	Strategy    BackoffStrategy
	MaxAttempts int
}

// Delay returns the wait before attempt, or false once the budget is spent.
func (p Policy) Delay(attempt int) (time.Duration, bool) {
	if p.Exhausted(attempt) {
		return 0, false
	}
	if p.Strategy == nil {
		return 0, true
	}
	return p.Strategy.Next(attempt), true
}

// Exhausted reports whether attempt exceeds the budget.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
