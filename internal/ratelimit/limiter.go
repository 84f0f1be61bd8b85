// Package ratelimit enforces the per-account sending policy: a daily quota
// and a minimum delay between consecutive sends. One Limiter guards one
// sending identity; its state survives across runs within a process.
package ratelimit

import (
	"sync"
	"time"
)

// Clock lets tests simulate day boundaries instead of sleeping real time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock used outside of tests.
var SystemClock Clock = systemClock{}

type Limiter struct {
	mu         sync.Mutex
	clock      Clock
	dailyLimit int
	delayMin   time.Duration
	sentToday  int
	lastSend   time.Time
	resetAt    time.Time // start of the next day; counter resets when now crosses it
}

// New builds a limiter. dailyLimit 0 blocks sending permanently; delayMin 0
// disables the inter-send delay but keeps the quota check.
func New(dailyLimit, delayMinSeconds int, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock
	}
	l := &Limiter{
		clock:      clock,
		dailyLimit: dailyLimit,
		delayMin:   time.Duration(delayMinSeconds) * time.Second,
	}
	l.resetAt = nextMidnight(clock.Now())
	return l
}

// SetLimits updates the policy without touching the counters, so an edited
// campaign takes effect on the next run against the same identity.
func (l *Limiter) SetLimits(dailyLimit, delayMinSeconds int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dailyLimit = dailyLimit
	l.delayMin = time.Duration(delayMinSeconds) * time.Second
}

// CanSend reports whether a send is permitted right now.
func (l *Limiter) CanSend() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.rollover(now)

	if l.sentToday >= l.dailyLimit {
		return false
	}
	if l.delayMin > 0 && !l.lastSend.IsZero() && now.Sub(l.lastSend) < l.delayMin {
		return false
	}
	return true
}

// WaitSeconds returns how long until the next send is permitted: the
// remainder of the delay window, or the time to the day boundary when the
// quota is spent.
func (l *Limiter) WaitSeconds() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.rollover(now)

	if l.sentToday >= l.dailyLimit {
		return int(l.resetAt.Sub(now).Seconds())
	}
	if l.delayMin > 0 && !l.lastSend.IsZero() {
		if since := now.Sub(l.lastSend); since < l.delayMin {
			return int((l.delayMin - since).Seconds())
		}
	}
	return 0
}

// QuotaExhausted reports whether the block is the daily quota rather than
// the inter-send delay. The orchestrator ends the run instead of sleeping
// until midnight.
func (l *Limiter) QuotaExhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(l.clock.Now())
	return l.sentToday >= l.dailyLimit
}

// RecordSend counts a successful delivery and stamps the send time. Failed
// attempts must not be recorded; they do not consume quota.
func (l *Limiter) RecordSend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sentToday++
	l.lastSend = l.clock.Now()
}

// SentToday is exposed for status display.
func (l *Limiter) SentToday() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(l.clock.Now())
	return l.sentToday
}

// rollover resets the counter lazily once the day boundary has passed.
// Callers must hold l.mu.
func (l *Limiter) rollover(now time.Time) {
	if now.Before(l.resetAt) {
		return
	}
	l.sentToday = 0
	l.resetAt = nextMidnight(now)
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
