package repository

import (
	"database/sql"

	"github.com/unclebandit/dmcampaign-backend/internal/model"
)

// Store bundles the repositories behind the orchestrator's persistence
// contract and owns the one write that must be transactional: a target's
// terminal status and its SendRecord commit together or not at all.
type Store struct {
	DB          *sql.DB
	Campaigns   *CampaignRepository
	Targets     *TargetRepository
	SendRecords *SendRecordRepository
	Accounts    *AccountRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:          db,
		Campaigns:   &CampaignRepository{DB: db},
		Targets:     &TargetRepository{DB: db},
		SendRecords: &SendRecordRepository{DB: db},
		Accounts:    &AccountRepository{DB: db},
	}
}

func (s *Store) GetCampaign(id int) (*model.Campaign, error) { return s.Campaigns.GetByID(id) }
func (s *Store) GetAccount(id int) (*model.Account, error)   { return s.Accounts.GetByID(id) }
func (s *Store) UpdateCampaign(c *model.Campaign) error      { return s.Campaigns.Update(c) }
func (s *Store) UpdateCampaignStatus(id int, status string) error {
	return s.Campaigns.UpdateStatus(id, status)
}
func (s *Store) AddCampaignSent(campaignID, sent int) error {
	return s.Campaigns.AddCounts(campaignID, sent)
}
func (s *Store) ListPendingTargets(campaignID int) ([]*model.Target, error) {
	return s.Targets.ListPending(campaignID)
}
func (s *Store) CountTargets(campaignID int) (int, error) {
	return s.Targets.CountByCampaign(campaignID)
}
func (s *Store) ResetFailedTargets(campaignID int, targetIDs []int) (int, error) {
	return s.Targets.ResetFailed(campaignID, targetIDs)
}

// SaveTargetResult commits the target's new status together with its
// delivery-attempt record in one transaction.
func (s *Store) SaveTargetResult(t *model.Target, rec *model.SendRecord) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE campaign_targets SET status=$1, error_message=$2, message_sent_at=$3 WHERE id=$4`,
		t.Status, t.ErrorMessage, t.MessageSentAt, t.ID,
	); err != nil {
		return err
	}

	if err := insertSendRecord(tx, rec); err != nil {
		return err
	}

	return tx.Commit()
}
