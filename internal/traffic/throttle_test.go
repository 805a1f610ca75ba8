package traffic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"unicms/backend/internal/traffic"
)

func TestThrottle_LimitWithinWindow(t *testing.T) {
	clock := newFakeClock()
	th := traffic.NewThrottle(3, time.Minute, clock.Now)
	const ip = "203.0.113.20"

	for i := 0; i < 3; i++ {
		ok, _ := th.Allow(ip)
		require.True(t, ok, "request %d within limit", i+1)
		clock.Advance(time.Second)
	}

	ok, remaining := th.Allow(ip)
	require.False(t, ok, "4th request in the window must be rejected")
	require.Greater(t, remaining, time.Duration(0))
	require.GreaterOrEqual(t, traffic.RemainingSeconds(remaining), 1)
	require.LessOrEqual(t, traffic.RemainingSeconds(remaining), 60)
}

func TestThrottle_WindowReset(t *testing.T) {
	clock := newFakeClock()
	th := traffic.NewThrottle(3, time.Minute, clock.Now)
	const ip = "203.0.113.21"

	for i := 0; i < 4; i++ {
		th.Allow(ip)
	}
	ok, _ := th.Allow(ip)
	require.False(t, ok)

	clock.Advance(time.Minute)
	ok, _ = th.Allow(ip)
	require.True(t, ok, "counter resets at the window boundary")
}

func TestThrottle_CollapsesIPv4MappedIPv6(t *testing.T) {
	clock := newFakeClock()
	th := traffic.NewThrottle(3, time.Minute, clock.Now)

	ok, _ := th.Allow("192.0.2.50")
	require.True(t, ok)
	ok, _ = th.Allow("::ffff:192.0.2.50")
	require.True(t, ok)
	ok, _ = th.Allow("192.0.2.50")
	require.True(t, ok)

	// Notation switching must not grant a fresh budget.
	ok, remaining := th.Allow("::ffff:192.0.2.50")
	require.False(t, ok)
	require.Greater(t, remaining, time.Duration(0))
}

func TestThrottle_IndependentIPs(t *testing.T) {
	clock := newFakeClock()
	th := traffic.NewThrottle(1, time.Minute, clock.Now)

	ok, _ := th.Allow("203.0.113.30")
	require.True(t, ok)
	ok, _ = th.Allow("203.0.113.31")
	require.True(t, ok, "other clients keep their own budget")
	ok, _ = th.Allow("203.0.113.30")
	require.False(t, ok)
}

func TestThrottle_SweepDropsExpiredCounters(t *testing.T) {
	clock := newFakeClock()
	th := traffic.NewThrottle(3, time.Minute, clock.Now)

	th.Allow("203.0.113.40")
	th.Allow("203.0.113.41")
	require.Equal(t, 2, th.TrackedClients())

	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, th.Sweep())
	require.Equal(t, 0, th.TrackedClients())
}

func TestRemainingSeconds(t *testing.T) {
	require.Equal(t, 1, traffic.RemainingSeconds(0))
	require.Equal(t, 1, traffic.RemainingSeconds(300*time.Millisecond))
	require.Equal(t, 1, traffic.RemainingSeconds(time.Second))
	require.Equal(t, 2, traffic.RemainingSeconds(time.Second+time.Nanosecond))
	require.Equal(t, 60, traffic.RemainingSeconds(time.Minute))
}
