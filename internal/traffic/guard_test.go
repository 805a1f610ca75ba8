package traffic_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"unicms/backend/internal/traffic"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flood sends perSecond requests in each of the given seconds, spaced evenly
// inside the second, and returns the first non-allowed verdict (if any).
func flood(g *traffic.Guard, clock *fakeClock, ip string, seconds, perSecond int) (traffic.Verdict, bool) {
	step := time.Second / time.Duration(perSecond+1)
	for s := 0; s < seconds; s++ {
		start := clock.Now()
		for i := 0; i < perSecond; i++ {
			v := g.Check(ip)
			if !v.Allowed {
				return v, true
			}
			clock.Advance(step)
		}
		// Align to the start of the next second.
		elapsed := clock.Now().Sub(start)
		clock.Advance(time.Second - elapsed)
	}
	return traffic.Verdict{}, false
}

func TestGuard_ModerateTrafficNeverBlocks(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)

	_, blocked := flood(g, clock, "203.0.113.7", 60, 10)
	require.False(t, blocked, "10 req/s sustained must never block")
}

func TestGuard_SustainedFloodBlocksNearThirtySeconds(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)
	start := clock.Now()

	verdict, blocked := flood(g, clock, "203.0.113.8", 40, 12)
	require.True(t, blocked, "sustained flood must block")
	require.True(t, verdict.TriggeredNow)
	require.Equal(t, 15*time.Minute, verdict.Remaining)
	require.Equal(t, 1, verdict.Strikes)

	elapsed := clock.Now().Sub(start)
	require.GreaterOrEqual(t, elapsed, 30*time.Second)
	require.Less(t, elapsed, 32*time.Second, "block must land within one bucket of the 30s mark")

	history := g.History("203.0.113.8")
	require.Len(t, history, 1)
	require.Equal(t, 15*time.Minute, history[0].Duration)
}

func TestGuard_CalmSecondResetsStreak(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)
	const ip = "203.0.113.9"

	_, blocked := flood(g, clock, ip, 29, 12)
	require.False(t, blocked)

	_, blocked = flood(g, clock, ip, 1, 5) // one calm second
	require.False(t, blocked)

	_, blocked = flood(g, clock, ip, 29, 12)
	require.False(t, blocked, "29s flood + calm second + 29s flood must not block")
}

func TestGuard_StrikeEscalationCapsAtTriple(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)
	const ip = "203.0.113.10"

	expected := []time.Duration{
		15 * time.Minute,                                // strike 1: 1.0x
		time.Duration(1.5 * float64(15 * time.Minute)),  // strike 2: 1.5x
		30 * time.Minute,                                // strike 3: 2.0x
		time.Duration(2.5 * float64(15 * time.Minute)),  // strike 4: 2.5x
		45 * time.Minute,                                // strike 5: 3.0x
		45 * time.Minute,                                // strike 6: capped at 3.0x
	}

	for i, want := range expected {
		verdict, blocked := flood(g, clock, ip, 40, 12)
		require.True(t, blocked, "flood %d must block", i+1)
		require.True(t, verdict.TriggeredNow)
		require.Equal(t, want, verdict.Remaining, "strike %d duration", i+1)
		require.Equal(t, i+1, verdict.Strikes)

		// Wait out the block before the next round.
		clock.Advance(verdict.Remaining + time.Minute)
	}

	require.Len(t, g.History(ip), len(expected))
}

func TestGuard_BlockedRequestsShortCircuit(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)
	const ip = "203.0.113.11"

	verdict, blocked := flood(g, clock, ip, 40, 12)
	require.True(t, blocked)
	require.Equal(t, 1, verdict.Strikes)

	// Every request during the block is rejected with a shrinking retry-after.
	clock.Advance(time.Minute)
	v := g.Check(ip)
	require.False(t, v.Allowed)
	require.False(t, v.TriggeredNow)
	require.InDelta(t, float64(14*time.Minute), float64(v.Remaining), float64(2*time.Second))

	clock.Advance(5 * time.Minute)
	v = g.Check(ip)
	require.False(t, v.Allowed)
	require.Greater(t, v.Remaining, time.Duration(0))

	// After the block lifts the client is served again.
	clock.Advance(15 * time.Minute)
	v = g.Check(ip)
	require.True(t, v.Allowed)
	require.Equal(t, 1, v.Strikes, "strikes persist after the block expires")
}

func TestGuard_SweepEvictsIdleStrikeFreeClients(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)

	g.Check("198.51.100.1") // casual client
	_, blocked := flood(g, clock, "198.51.100.2", 40, 12)
	require.True(t, blocked)
	require.Equal(t, 2, g.TrackedClients())

	clock.Advance(2 * time.Minute)
	evicted := g.Sweep()

	require.Equal(t, 1, evicted)
	require.Equal(t, 1, g.TrackedClients(), "clients with strikes are retained")
	require.NotEmpty(t, g.History("198.51.100.2"))
}

func TestGuard_FreshClientIsNotAggressive(t *testing.T) {
	g := traffic.NewGuard(nil)
	v := g.Check("192.0.2.200")
	require.True(t, v.Allowed)
	require.Zero(t, v.Strikes)
}

func TestGuard_IndependentClients(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)

	// Interleave a flood from one IP with light traffic from another.
	for s := 0; s < 40; s++ {
		for i := 0; i < 12; i++ {
			g.Check("203.0.113.66")
		}
		v := g.Check("203.0.113.67")
		require.True(t, v.Allowed, "light client must stay unaffected at second %d", s)
		clock.Advance(time.Second)
	}
}

func TestGuard_NotationSwitchSharesOneRecord(t *testing.T) {
	clock := newFakeClock()
	g := traffic.NewGuard(clock.Now)

	// Half the flood arrives as dotted quad, half as the IPv4-mapped IPv6
	// form. Both must land on the same record so the streak keeps building.
	_, blocked := flood(g, clock, "203.0.113.12", 20, 12)
	require.False(t, blocked)

	verdict, blocked := flood(g, clock, "::ffff:203.0.113.12", 20, 12)
	require.True(t, blocked, "switching notation must not reset the streak")
	require.True(t, verdict.TriggeredNow)

	require.Equal(t, 1, g.TrackedClients())
	require.Len(t, g.History("203.0.113.12"), 1)
	require.Len(t, g.History("::ffff:203.0.113.12"), 1)
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"192.0.2.1", "192.0.2.1"},
		{"::ffff:192.0.2.1", "192.0.2.1"},
		{"2001:db8::1", "2001:db8::1"},
		{"not-an-ip", "not-an-ip"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("input_%s", tt.input), func(t *testing.T) {
			require.Equal(t, tt.want, traffic.NormalizeIP(tt.input))
		})
	}
}
