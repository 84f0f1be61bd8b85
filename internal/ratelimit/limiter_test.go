package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, so day boundaries are simulated
// instead of slept through.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func TestQuotaBlocksAtDailyLimit(t *testing.T) {
	clock := newFakeClock()
	l := New(3, 0, clock)

	for i := 0; i < 3; i++ {
		require.True(t, l.CanSend(), "send %d should be allowed", i)
		l.RecordSend()
	}

	assert.False(t, l.CanSend())
	assert.True(t, l.QuotaExhausted())
	assert.Equal(t, 3, l.SentToday())

	// WaitSeconds points at the day boundary: 09:00 → midnight is 15h away.
	assert.Equal(t, int((15 * time.Hour).Seconds()), l.WaitSeconds())
}

func TestDelayBetweenSends(t *testing.T) {
	clock := newFakeClock()
	l := New(10, 30, clock)

	require.True(t, l.CanSend())
	l.RecordSend()

	assert.False(t, l.CanSend())
	assert.Equal(t, 30, l.WaitSeconds())

	clock.advance(10 * time.Second)
	assert.False(t, l.CanSend())
	assert.Equal(t, 20, l.WaitSeconds())

	clock.advance(20 * time.Second)
	assert.True(t, l.CanSend())
	assert.Equal(t, 0, l.WaitSeconds())
}

func TestDayRolloverResetsCounter(t *testing.T) {
	clock := newFakeClock()
	l := New(2, 0, clock)

	l.RecordSend()
	l.RecordSend()
	require.False(t, l.CanSend())

	// Cross midnight; the counter resets lazily on the next check.
	clock.advance(24 * time.Hour)
	assert.True(t, l.CanSend())
	assert.Equal(t, 0, l.SentToday())
	assert.False(t, l.QuotaExhausted())
}

func TestZeroDailyLimitBlocksPermanently(t *testing.T) {
	clock := newFakeClock()
	l := New(0, 0, clock)

	assert.False(t, l.CanSend())
	assert.True(t, l.QuotaExhausted())

	clock.advance(24 * time.Hour)
	assert.False(t, l.CanSend(), "a new day does not unblock a zero quota")
}

func TestZeroDelayDisablesDelayCheckOnly(t *testing.T) {
	clock := newFakeClock()
	l := New(2, 0, clock)

	require.True(t, l.CanSend())
	l.RecordSend()
	assert.True(t, l.CanSend(), "no delay gate with delayMin=0")
	l.RecordSend()
	assert.False(t, l.CanSend(), "quota still applies")
}

func TestQuotaNeverExceededBeforeReset(t *testing.T) {
	clock := newFakeClock()
	l := New(5, 0, clock)

	sent := 0
	for i := 0; i < 20; i++ {
		if l.CanSend() {
			l.RecordSend()
			sent++
		}
		clock.advance(time.Minute)
	}
	assert.Equal(t, 5, sent)
	assert.Equal(t, 5, l.SentToday())
}

func TestRegistrySharesLimiterPerAccount(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(clock)

	a := r.ForAccount(7, 10, 30)
	a.RecordSend()

	b := r.ForAccount(7, 20, 60)
	assert.Same(t, a, b, "same identity, same limiter state")
	assert.Equal(t, 1, b.SentToday())

	other := r.ForAccount(8, 10, 30)
	assert.NotSame(t, a, other)
	assert.Equal(t, 0, other.SentToday())
}
