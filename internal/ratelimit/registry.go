// internal/ratelimit/registry.go
package ratelimit

import "sync"

// Registry hands out one Limiter per sending identity so quota state is
// shared across consecutive runs on the same account.
type Registry struct {
	mu       sync.Mutex
	clock    Clock
	limiters map[int]*Limiter
}

func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	return &Registry{clock: clock, limiters: make(map[int]*Limiter)}
}

// ForAccount returns the account's limiter, creating it on first use and
// refreshing the policy on every call so campaign edits take effect.
func (r *Registry) ForAccount(accountID, dailyLimit, delayMinSeconds int) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[accountID]
	if !ok {
		l = New(dailyLimit, delayMinSeconds, r.clock)
		r.limiters[accountID] = l
		return l
	}
	l.SetLimits(dailyLimit, delayMinSeconds)
	return l
}
