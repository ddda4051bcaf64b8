package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name  string
	err   error
	delay time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func TestAggregator_Check(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{
			name:     "no checks",
			checkers: nil,
			want:     StatusHealthy,
		},
		{
			name: "all healthy",
			checkers: []Checker{
				&mockChecker{name: "redis"},
				&mockChecker{name: "cache"},
			},
			want: StatusHealthy,
		},
		{
			name: "one degraded",
			checkers: []Checker{
				&mockChecker{name: "redis"},
				&mockChecker{name: "cache", err: Degraded(errors.New("hit rate low"))},
			},
			want: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checkers: []Checker{
				&mockChecker{name: "redis", err: errors.New("connection refused")},
				&mockChecker{name: "cache", err: Degraded(errors.New("hit rate low"))},
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator(time.Second)
			for _, c := range tt.checkers {
				a.Register(c)
			}

			resp := a.Check(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestAggregator_CheckResultDetails(t *testing.T) {
	a := NewAggregator(time.Second)
	a.SetMetadata("service", "cachectl")
	a.Register(&mockChecker{name: "redis", err: errors.New("boom")})
	a.Register(&mockChecker{name: "cache", err: Degraded(errors.New("slow"))})

	resp := a.Check(context.Background())
	require.Contains(t, resp.Checks, "redis")
	assert.Equal(t, "boom", resp.Checks["redis"].Error)
	assert.Equal(t, StatusDegraded, resp.Checks["cache"].Status)
	assert.Equal(t, "slow", resp.Checks["cache"].Error)
	assert.Equal(t, "cachectl", resp.Metadata["service"])
	assert.False(t, resp.IsHealthy())
}

func TestAggregator_Timeout(t *testing.T) {
	a := NewAggregator(20 * time.Millisecond)
	a.Register(&mockChecker{name: "slow", delay: time.Second})

	start := time.Now()
	resp := a.Check(context.Background())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestDegraded(t *testing.T) {
	base := errors.New("base")
	err := Degraded(base)

	assert.True(t, IsDegraded(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsDegraded(base))
	assert.NoError(t, Degraded(nil))
}
