// internal/service/run_locks.go
package service

import "sync"

// runLocks enforces one active run per sending identity. A second orchestrator
// must never run against the same account while one is in flight.
type runLocks struct {
	mu     sync.Mutex
	active map[int]bool
}

func newRunLocks() *runLocks {
	return &runLocks{active: make(map[int]bool)}
}

func (r *runLocks) acquire(accountID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[accountID] {
		return false
	}
	r.active[accountID] = true
	return true
}

func (r *runLocks) release(accountID int) {
	r.mu.Lock()
	delete(r.active, accountID)
	r.mu.Unlock()
}
