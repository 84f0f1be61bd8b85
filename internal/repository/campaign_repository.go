package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/dmcampaign-backend/internal/errors"
	"github.com/unclebandit/dmcampaign-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	Update(c *model.Campaign) error
	UpdateStatus(campaignID int, status string) error
	ListCampaigns(offset, limit int, accountID int, status string) ([]*model.Campaign, int, error)
	ListDueScheduled(now time.Time) ([]*model.Campaign, error)
	AddCounts(campaignID, sentDelta int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, account_id, name, description, status, message_template,
        personalization_enabled, daily_limit, delay_min, delay_max,
        total_targets, messages_sent, replies_received,
        scheduled_start, started_at, completed_at, created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns
            (account_id, name, description, status, message_template,
             personalization_enabled, daily_limit, delay_min, delay_max, scheduled_start, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.AccountID, c.Name, c.Description, c.Status, c.MessageTemplate,
		c.PersonalizationEnabled, c.DailyLimit, c.DelayMin, c.DelayMax,
		c.ScheduledStart, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c := &model.Campaign{}
	err := scanCampaign(r.DB.QueryRow(query, id), c)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, description=$2, status=$3, message_template=$4,
            personalization_enabled=$5, daily_limit=$6, delay_min=$7, delay_max=$8,
            total_targets=$9, messages_sent=$10, replies_received=$11,
            scheduled_start=$12, started_at=$13, completed_at=$14, updated_at=NOW()
        WHERE id=$15
    `
	_, err := r.DB.Exec(query,
		c.Name, c.Description, c.Status, c.MessageTemplate,
		c.PersonalizationEnabled, c.DailyLimit, c.DelayMin, c.DelayMax,
		c.TotalTargets, c.MessagesSent, c.RepliesReceived,
		c.ScheduledStart, c.StartedAt, c.CompletedAt, c.ID,
	)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, accountID int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if accountID > 0 {
		query += fmt.Sprintf(" AND account_id=$%d", argPos)
		args = append(args, accountID)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := scanCampaign(rows, c); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if accountID > 0 {
		countQuery += fmt.Sprintf(" AND account_id=$%d", argPosCount)
		argsCount = append(argsCount, accountID)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListDueScheduled returns drafts whose scheduled start has passed; the
// worker cron enqueues a run for each.
func (r *CampaignRepository) ListDueScheduled(now time.Time) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
        WHERE status=$1 AND scheduled_start IS NOT NULL AND scheduled_start <= $2
        ORDER BY id`
	rows, err := r.DB.Query(query, model.CampaignDraft, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := scanCampaign(rows, c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// AddCounts increments messages_sent. Counters only ever grow while a
// campaign is active.
func (r *CampaignRepository) AddCounts(campaignID, sentDelta int) error {
	query := `UPDATE campaigns SET messages_sent = messages_sent + $1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, sentDelta, campaignID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner, c *model.Campaign) error {
	return row.Scan(
		&c.ID, &c.AccountID, &c.Name, &c.Description, &c.Status, &c.MessageTemplate,
		&c.PersonalizationEnabled, &c.DailyLimit, &c.DelayMin, &c.DelayMax,
		&c.TotalTargets, &c.MessagesSent, &c.RepliesReceived,
		&c.ScheduledStart, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
