// internal/model/transitions.go
package model

import (
	"time"

	appErrors "github.com/unclebandit/dmcampaign-backend/internal/errors"
)

// Campaign transitions are guarded functions, not free assignment. Each
// mutates the campaign only when the guard passes and returns a typed
// precondition error otherwise.

// Activate moves draft/paused → active. A draft needs at least one target
// and an already-validated template; resuming a paused campaign keeps its
// counters and start time.
func (c *Campaign) Activate(targetCount int, now time.Time) error {
	switch c.Status {
	case CampaignDraft:
		if targetCount < 1 {
			return appErrors.NewNoTargets(c.ID)
		}
		if c.MessageTemplate == "" {
			return appErrors.NewInvalidTemplate([]string{"template cannot be empty"})
		}
		c.Status = CampaignActive
		c.StartedAt = &now
		return nil
	case CampaignPaused:
		c.Status = CampaignActive
		return nil
	default:
		return appErrors.NewInvalidCampaignState(c.ID, c.Status, "draft or paused")
	}
}

// Pause moves active → paused. The orchestrator observes the new status on
// its next target-level check and stops cleanly.
func (c *Campaign) Pause() error {
	if c.Status != CampaignActive {
		return appErrors.NewInvalidCampaignState(c.ID, c.Status, CampaignActive)
	}
	c.Status = CampaignPaused
	return nil
}

// Complete is set by the orchestrator once no pending targets remain.
func (c *Campaign) Complete(now time.Time) error {
	if c.Status != CampaignActive {
		return appErrors.NewInvalidCampaignState(c.ID, c.Status, CampaignActive)
	}
	c.Status = CampaignCompleted
	c.CompletedAt = &now
	return nil
}

// Fail marks a run where every attempted target failed. It is never set for
// a run that could not attempt anything.
func (c *Campaign) Fail() error {
	if c.Status != CampaignActive {
		return appErrors.NewInvalidCampaignState(c.ID, c.Status, CampaignActive)
	}
	c.Status = CampaignFailed
	return nil
}

// MarkSent records a successful delivery on the target.
func (t *Target) MarkSent(now time.Time) {
	t.Status = TargetSent
	t.ErrorMessage = ""
	t.MessageSentAt = &now
}

// MarkFailed records a failed delivery with its error message.
func (t *Target) MarkFailed(errMsg string) {
	t.Status = TargetFailed
	t.ErrorMessage = errMsg
}

// ResetForRetry moves a failed target back to pending, clearing the error.
// This is the only externally-triggered inverse transition.
func (t *Target) ResetForRetry() bool {
	if t.Status != TargetFailed {
		return false
	}
	t.Status = TargetPending
	t.ErrorMessage = ""
	return true
}
