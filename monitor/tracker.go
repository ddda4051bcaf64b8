package monitor

import (
	"sync"
	"time"
)

// tracker keeps a fixed window of response times plus running totals.
type tracker struct {
	mu        sync.Mutex
	window    []time.Duration
	next      int
	full      bool
	slowLimit time.Duration

	queries int64
	errors  int64
}

func newTracker(size int, slowLimit time.Duration) *tracker {
	return &tracker{
		window:    make([]time.Duration, size),
		slowLimit: slowLimit,
	}
}

func (t *tracker) track(d time.Duration, success bool) {
	t.mu.Lock()
	t.window[t.next] = d
	t.next++
	if t.next == len(t.window) {
		t.next = 0
		t.full = true
	}
	t.queries++
	if !success {
		t.errors++
	}
	t.mu.Unlock()
}

type trackerSnapshot struct {
	avg     time.Duration
	slow    int64
	queries int64
	errors  int64
}

func (t *tracker) snapshot() trackerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.next
	if t.full {
		n = len(t.window)
	}
	s := trackerSnapshot{queries: t.queries, errors: t.errors}
	if n == 0 {
		return s
	}

	var total time.Duration
	for _, d := range t.window[:n] {
		total += d
		if d > t.slowLimit {
			s.slow++
		}
	}
	s.avg = total / time.Duration(n)
	return s
}

func (t *tracker) reset() {
	t.mu.Lock()
	t.next = 0
	t.full = false
	t.queries = 0
	t.errors = 0
	t.mu.Unlock()
}
