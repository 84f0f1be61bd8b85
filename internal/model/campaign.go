// internal/model/campaign.go
package model

import "time"

// Campaign statuses.
const (
	CampaignDraft     = "draft"
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignFailed    = "failed"
)

type Campaign struct {
	ID                     int        `db:"id" json:"id"`
	AccountID              int        `db:"account_id" json:"account_id"`
	Name                   string     `db:"name" json:"name"`
	Description            string     `db:"description" json:"description,omitempty"`
	Status                 string     `db:"status" json:"status"`
	MessageTemplate        string     `db:"message_template" json:"message_template"`
	PersonalizationEnabled bool       `db:"personalization_enabled" json:"personalization_enabled"`
	DailyLimit             int        `db:"daily_limit" json:"daily_limit"`
	DelayMin               int        `db:"delay_min" json:"delay_min"` // seconds between sends
	DelayMax               int        `db:"delay_max" json:"delay_max"` // advisory; not enforced by the engine
	TotalTargets           int        `db:"total_targets" json:"total_targets"`
	MessagesSent           int        `db:"messages_sent" json:"messages_sent"`
	RepliesReceived        int        `db:"replies_received" json:"replies_received"`
	ScheduledStart         *time.Time `db:"scheduled_start" json:"scheduled_start,omitempty"`
	StartedAt              *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt            *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
