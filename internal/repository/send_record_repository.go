package repository

import (
	"database/sql"

	"github.com/unclebandit/dmcampaign-backend/internal/model"
)

type SendRecordRepositoryInterface interface {
	ListByCampaign(campaignID, limit int) ([]*model.SendRecord, error)
}

type SendRecordRepository struct {
	DB *sql.DB
}

var _ SendRecordRepositoryInterface = (*SendRecordRepository)(nil)

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

const insertSendRecordQuery = `
        INSERT INTO send_records
            (id, campaign_id, target_id, content, channel_message_id, status,
             error_message, queued_at, sent_at, delivered_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

// insertSendRecord writes one immutable delivery-attempt record. Rows are
// only ever written inside Store.SaveTargetResult's transaction, so this
// stays off the exported interface.
func insertSendRecord(e execer, rec *model.SendRecord) error {
	_, err := e.Exec(insertSendRecordQuery,
		rec.ID, rec.CampaignID, rec.TargetID, rec.Content, rec.ChannelMessageID,
		rec.Status, rec.ErrorMessage, rec.QueuedAt, rec.SentAt, rec.DeliveredAt,
	)
	return err
}

// ListByCampaign returns the campaign's attempt history, newest first.
func (r *SendRecordRepository) ListByCampaign(campaignID, limit int) ([]*model.SendRecord, error) {
	if limit < 1 {
		limit = 100
	}
	query := `
        SELECT id, campaign_id, target_id, content, channel_message_id, status,
               error_message, queued_at, sent_at, delivered_at
        FROM send_records WHERE campaign_id=$1 ORDER BY queued_at DESC LIMIT $2
    `
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*model.SendRecord{}
	for rows.Next() {
		rec := &model.SendRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.TargetID, &rec.Content, &rec.ChannelMessageID,
			&rec.Status, &rec.ErrorMessage, &rec.QueuedAt, &rec.SentAt, &rec.DeliveredAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
