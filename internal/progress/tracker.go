// Package progress keeps a concurrency-safe view of in-flight runs, keyed by
// campaign id. Entries exist only while a run is active; the orchestrator
// removes them on completion.
package progress

import (
	"sync"
	"time"
)

// Snapshot statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Snapshot is a point-in-time summary of one run. Values, not pointers, are
// stored and returned so a polling reader never observes a torn write.
type Snapshot struct {
	CampaignID    int       `json:"campaign_id"`
	TotalTargets  int       `json:"total_targets"`
	Processed     int       `json:"processed"`
	Sent          int       `json:"sent"`
	Failed        int       `json:"failed"`
	CurrentTarget string    `json:"current_target,omitempty"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
}

type Tracker struct {
	mu   sync.RWMutex
	runs map[int]Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{runs: make(map[int]Snapshot)}
}

// Set stores the snapshot for a campaign, replacing any previous one.
func (t *Tracker) Set(s Snapshot) {
	t.mu.Lock()
	t.runs[s.CampaignID] = s
	t.mu.Unlock()
}

// Get returns the snapshot for a campaign, if a run is active.
func (t *Tracker) Get(campaignID int) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.runs[campaignID]
	return s, ok
}

// Remove drops the entry once the run finishes.
func (t *Tracker) Remove(campaignID int) {
	t.mu.Lock()
	delete(t.runs, campaignID)
	t.mu.Unlock()
}
