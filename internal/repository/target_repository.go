package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/dmcampaign-backend/internal/model"
)

type TargetRepositoryInterface interface {
	CreateBatch(campaignID int, targets []*model.Target) (int, error)
	ListPending(campaignID int) ([]*model.Target, error)
	CountByCampaign(campaignID int) (int, error)
	Update(t *model.Target) error
	ResetFailed(campaignID int, targetIDs []int) (int, error)
	GetCampaignStats(campaignID int) (map[string]int, error)
}

type TargetRepository struct {
	DB *sql.DB
}

const targetColumns = `id, campaign_id, username, display_name, recipient_id,
        follower_count, following_count, can_dm, status, error_message, message_sent_at, created_at`

// CreateBatch inserts targets for a campaign and returns how many were
// inserted. Status starts as pending.
func (r *TargetRepository) CreateBatch(campaignID int, targets []*model.Target) (int, error) {
	if len(targets) == 0 {
		return 0, nil
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaign_targets
            (campaign_id, username, display_name, recipient_id, follower_count,
             following_count, can_dm, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	now := time.Now()
	inserted := 0
	for _, t := range targets {
		t.CampaignID = campaignID
		t.Status = model.TargetPending
		t.CreatedAt = now
		if err := tx.QueryRow(query,
			campaignID, t.Username, t.DisplayName, t.RecipientID,
			t.FollowerCount, t.FollowingCount, t.CanDM, t.Status, t.CreatedAt,
		).Scan(&t.ID); err != nil {
			return 0, err
		}
		inserted++
	}

	// Keep the campaign's aggregate in step inside the same transaction.
	if _, err := tx.Exec(
		`UPDATE campaigns SET total_targets = total_targets + $1, updated_at=NOW() WHERE id=$2`,
		inserted, campaignID,
	); err != nil {
		return 0, err
	}

	return inserted, tx.Commit()
}

// ListPending returns the campaign's pending, DM-eligible targets in
// creation order so pause/resume cycles are deterministic.
func (r *TargetRepository) ListPending(campaignID int) ([]*model.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM campaign_targets
        WHERE campaign_id=$1 AND status=$2 AND can_dm=TRUE
        ORDER BY id`
	rows, err := r.DB.Query(query, campaignID, model.TargetPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := []*model.Target{}
	for rows.Next() {
		t := &model.Target{}
		if err := scanTarget(rows, t); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (r *TargetRepository) CountByCampaign(campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM campaign_targets WHERE campaign_id=$1`, campaignID).Scan(&count)
	return count, err
}

func (r *TargetRepository) Update(t *model.Target) error {
	query := `
        UPDATE campaign_targets
        SET status=$1, error_message=$2, message_sent_at=$3
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, t.Status, t.ErrorMessage, t.MessageSentAt, t.ID)
	return err
}

// ResetFailed moves the campaign's failed targets (optionally limited to
// targetIDs) back to pending and clears their error message. Returns the
// number of rows reset.
func (r *TargetRepository) ResetFailed(campaignID int, targetIDs []int) (int, error) {
	query := `UPDATE campaign_targets SET status=$1, error_message='' WHERE campaign_id=$2 AND status=$3`
	args := []interface{}{model.TargetPending, campaignID, model.TargetFailed}

	if len(targetIDs) > 0 {
		placeholders := make([]string, len(targetIDs))
		for i, id := range targetIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += " AND id IN (" + strings.Join(placeholders, ", ") + ")"
	}

	res, err := r.DB.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *TargetRepository) GetCampaignStats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_targets WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0, "replied": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanTarget(row rowScanner, t *model.Target) error {
	return row.Scan(
		&t.ID, &t.CampaignID, &t.Username, &t.DisplayName, &t.RecipientID,
		&t.FollowerCount, &t.FollowingCount, &t.CanDM, &t.Status,
		&t.ErrorMessage, &t.MessageSentAt, &t.CreatedAt,
	)
}

var _ TargetRepositoryInterface = (*TargetRepository)(nil)
