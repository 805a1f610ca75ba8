package traffic

import (
	"sync"
	"time"
)

type windowCounter struct {
	start time.Time
	count int
}

// Throttle is a fixed-window request counter keyed by normalized client IP.
// It caps absolute volume on a single route, independent of burst shape, and
// resets atomically at window boundaries.
type Throttle struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string]*windowCounter
	now      func() time.Time
}

// NewThrottle creates a Throttle allowing limit requests per window per IP.
// A nil clock defaults to time.Now.
func NewThrottle(limit int, window time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{
		limit:    limit,
		window:   window,
		counters: make(map[string]*windowCounter),
		now:      now,
	}
}

// Allow records one request from ip. When the limit is exceeded it returns
// false with the time remaining until the window resets.
func (t *Throttle) Allow(ip string) (bool, time.Duration) {
	key := NormalizeIP(ip)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	counter, ok := t.counters[key]
	if !ok || !now.Before(counter.start.Add(t.window)) {
		counter = &windowCounter{start: now}
		t.counters[key] = counter
	}

	counter.count++
	if counter.count > t.limit {
		return false, counter.start.Add(t.window).Sub(now)
	}
	return true, 0
}

// RemainingSeconds converts a retry-after duration to the positive integer
// second count reported to clients.
func RemainingSeconds(remaining time.Duration) int {
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Sweep removes counters whose window has already expired.
func (t *Throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	evicted := 0
	for key, counter := range t.counters {
		if !now.Before(counter.start.Add(t.window)) {
			delete(t.counters, key)
			evicted++
		}
	}
	return evicted
}

// TrackedClients reports how many counters are currently held.
func (t *Throttle) TrackedClients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counters)
}
