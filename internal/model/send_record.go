// internal/model/send_record.go
package model

import "time"

// SendRecord statuses.
const (
	SendRecordSent   = "sent"
	SendRecordFailed = "failed"
)

// SendRecord is an immutable record of one delivery attempt. Exactly one row
// is written per attempted target; rows are never updated afterwards.
type SendRecord struct {
	ID               string     `db:"id" json:"id"` // uuid
	CampaignID       int        `db:"campaign_id" json:"campaign_id"`
	TargetID         int        `db:"target_id" json:"target_id"`
	Content          string     `db:"content" json:"content"`
	ChannelMessageID string     `db:"channel_message_id" json:"channel_message_id,omitempty"`
	Status           string     `db:"status" json:"status"`
	ErrorMessage     string     `db:"error_message" json:"error_message,omitempty"`
	QueuedAt         time.Time  `db:"queued_at" json:"queued_at"`
	SentAt           *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt      *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}
