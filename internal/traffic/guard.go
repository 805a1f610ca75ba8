// Package traffic holds the in-process abuse mitigation state: a sliding-window
// flood classifier (Guard) and a fixed-window per-route limiter (Throttle).
// Both are process-local; state is not shared across instances.
package traffic

import (
	"net"
	"sync"
	"time"
)

const (
	// More than this many requests inside one second counts as aggressive.
	burstThreshold = 10
	// Aggression must hold continuously for this long before a block lands.
	// A single calm second resets the streak.
	sustainPeriod = 30 * time.Second
	// Base cool-down; escalates with strikes up to maxPenalty times.
	baseBlockDuration = 15 * time.Minute
	maxPenalty        = 3.0
	// Bounded bucket history per client (a bit over the sustain period).
	maxWindows = 40
	// Buckets older than this are dropped during sweeps.
	windowRetention = 60 * time.Second
)

// BlockEvent records one imposed block for later incident review.
type BlockEvent struct {
	At       time.Time
	Duration time.Duration
}

type bucket struct {
	start int64 // unix second
	count int
}

type clientRecord struct {
	blockedUntil      time.Time
	windows           []bucket
	firstAggressiveAt time.Time
	strikes           int
	history           []BlockEvent
}

// Verdict is the outcome of a single Guard check.
type Verdict struct {
	Allowed bool
	// TriggeredNow is true when this request tripped a fresh block.
	TriggeredNow bool
	// Remaining is how long the client stays blocked.
	Remaining time.Duration
	Strikes   int
}

// Guard classifies clients by sustained request rate and imposes escalating
// cool-down blocks. It never fails; an unknown client is simply not aggressive.
type Guard struct {
	mu      sync.Mutex
	records map[string]*clientRecord
	now     func() time.Time
}

// NewGuard creates a Guard. A nil clock defaults to time.Now.
func NewGuard(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		records: make(map[string]*clientRecord),
		now:     now,
	}
}

// Check records one request from ip and decides whether it may proceed.
func (g *Guard) Check(ip string) Verdict {
	key := NormalizeIP(ip)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, ok := g.records[key]
	if !ok {
		rec = &clientRecord{}
		g.records[key] = rec
	}

	blocked := now.Before(rec.blockedUntil)

	// Bucket accounting happens even while blocked, for record-keeping.
	second := now.Unix()
	if len(rec.windows) == 0 || rec.windows[len(rec.windows)-1].start != second {
		// Rolling into a new second: the streak survives only if the second we
		// just completed was aggressive and no empty (calm) second intervened.
		if last := lastBucket(rec.windows); last != nil {
			if last.count <= burstThreshold || second-last.start > 1 {
				rec.firstAggressiveAt = time.Time{}
			}
		}
		rec.windows = append(rec.windows, bucket{start: second})
		if len(rec.windows) > maxWindows {
			rec.windows = rec.windows[len(rec.windows)-maxWindows:]
		}
	}
	rec.windows[len(rec.windows)-1].count++

	if blocked {
		return Verdict{
			Remaining: rec.blockedUntil.Sub(now),
			Strikes:   rec.strikes,
		}
	}

	aggressiveNow := rec.windows[len(rec.windows)-1].count > burstThreshold
	if aggressiveNow && rec.firstAggressiveAt.IsZero() {
		rec.firstAggressiveAt = now
	}

	if aggressiveNow && !rec.firstAggressiveAt.IsZero() && now.Sub(rec.firstAggressiveAt) >= sustainPeriod {
		penalty := 1 + float64(rec.strikes)*0.5
		if penalty > maxPenalty {
			penalty = maxPenalty
		}
		duration := time.Duration(float64(baseBlockDuration) * penalty)

		rec.blockedUntil = now.Add(duration)
		rec.strikes++
		rec.firstAggressiveAt = time.Time{}
		rec.history = append(rec.history, BlockEvent{At: now, Duration: duration})

		return Verdict{
			TriggeredNow: true,
			Remaining:    duration,
			Strikes:      rec.strikes,
		}
	}

	return Verdict{Allowed: true, Strikes: rec.strikes}
}

func lastBucket(windows []bucket) *bucket {
	if len(windows) == 0 {
		return nil
	}
	return &windows[len(windows)-1]
}

// Sweep drops stale buckets and evicts records that are idle, unblocked, and
// strike-free. Records with history are retained for escalation. Returns the
// number of evicted clients.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-windowRetention).Unix()
	evicted := 0

	for ip, rec := range g.records {
		kept := rec.windows[:0]
		for _, w := range rec.windows {
			if w.start >= cutoff {
				kept = append(kept, w)
			}
		}
		rec.windows = kept

		if len(rec.windows) == 0 && rec.strikes == 0 && !now.Before(rec.blockedUntil) {
			delete(g.records, ip)
			evicted++
		}
	}

	return evicted
}

// TrackedClients reports how many client records are currently held.
func (g *Guard) TrackedClients() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// History returns a copy of the block history for ip.
func (g *Guard) History(ip string) []BlockEvent {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[NormalizeIP(ip)]
	if !ok {
		return nil
	}
	history := make([]BlockEvent, len(rec.history))
	copy(history, rec.history)
	return history
}

// NormalizeIP collapses IPv4-mapped IPv6 representations so the same client
// cannot sidestep per-IP accounting by switching notations.
func NormalizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}
	return parsed.String()
}
