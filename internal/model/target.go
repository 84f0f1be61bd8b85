// internal/model/target.go
package model

import "time"

// Target statuses. "replied" is written by the reply monitor, not the engine.
const (
	TargetPending = "pending"
	TargetSent    = "sent"
	TargetFailed  = "failed"
	TargetReplied = "replied"
)

type Target struct {
	ID             int        `db:"id" json:"id"`
	CampaignID     int        `db:"campaign_id" json:"campaign_id"`
	Username       string     `db:"username" json:"username"`
	DisplayName    string     `db:"display_name" json:"display_name,omitempty"`
	RecipientID    string     `db:"recipient_id" json:"recipient_id"`
	FollowerCount  int        `db:"follower_count" json:"follower_count"`
	FollowingCount int        `db:"following_count" json:"following_count"`
	CanDM          bool       `db:"can_dm" json:"can_dm"`
	Status         string     `db:"status" json:"status"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	MessageSentAt  *time.Time `db:"message_sent_at" json:"message_sent_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
