// internal/service/campaign_service.go
package service

import (
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/dmcampaign-backend/internal/errors"
	"github.com/unclebandit/dmcampaign-backend/internal/model"
	"github.com/unclebandit/dmcampaign-backend/internal/personalize"
	"github.com/unclebandit/dmcampaign-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	TargetRepo     repository.TargetRepositoryInterface
	AccountRepo    repository.AccountRepositoryInterface
	SendRecordRepo repository.SendRecordRepositoryInterface
	Log            zerolog.Logger
}

// CreateCampaignInput is the operator-facing shape for new campaigns.
type CreateCampaignInput struct {
	AccountID              int     `json:"account_id"`
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	MessageTemplate        string  `json:"message_template"`
	PersonalizationEnabled *bool   `json:"personalization_enabled"`
	DailyLimit             int     `json:"daily_limit"`
	DelayMin               int     `json:"delay_min"`
	DelayMax               int     `json:"delay_max"`
	ScheduledStart         *string `json:"scheduled_start"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	if ok, problems := personalize.Validate(in.MessageTemplate); !ok {
		return nil, appErrors.NewInvalidTemplate(problems)
	}

	c := &model.Campaign{
		AccountID:              in.AccountID,
		Name:                   in.Name,
		Description:            in.Description,
		MessageTemplate:        in.MessageTemplate,
		PersonalizationEnabled: true,
		Status:                 model.CampaignDraft,
		DailyLimit:             in.DailyLimit,
		DelayMin:               in.DelayMin,
		DelayMax:               in.DelayMax,
	}
	if in.PersonalizationEnabled != nil {
		c.PersonalizationEnabled = *in.PersonalizationEnabled
	}
	if c.DailyLimit == 0 {
		c.DailyLimit = 50
	}
	if c.DelayMin == 0 {
		c.DelayMin = 30
	}
	if c.DelayMax == 0 {
		c.DelayMax = 120
	}

	if in.ScheduledStart != nil {
		t, err := time.Parse(time.RFC3339, *in.ScheduledStart)
		if err != nil {
			return nil, err
		}
		c.ScheduledStart = &t
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	s.Log.Info().Int("campaign_id", c.ID).Str("name", c.Name).Msg("campaign created")
	return c, nil
}

// AddTargets ingests recipients for a campaign. Only draft and paused
// campaigns accept new targets.
func (s *CampaignService) AddTargets(campaignID int, targets []*model.Target) (int, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignPaused {
		return 0, appErrors.NewInvalidCampaignState(campaignID, campaign.Status, "draft or paused")
	}
	n, err := s.TargetRepo.CreateBatch(campaignID, targets)
	if err != nil {
		return 0, err
	}
	s.Log.Info().Int("campaign_id", campaignID).Int("targets", n).Msg("targets added")
	return n, nil
}

// ValidateForActivation runs the activation guards without mutating anything:
// at least one target, a sendable account, a valid template.
func (s *CampaignService) ValidateForActivation(campaignID int) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}

	// Mirror the run loop's own precondition so an ineligible campaign is
	// rejected here with a 422 instead of bouncing off the worker.
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignPaused {
		return appErrors.NewInvalidCampaignState(campaignID, campaign.Status, "draft or paused")
	}

	count, err := s.TargetRepo.CountByCampaign(campaignID)
	if err != nil {
		return err
	}
	if count < 1 {
		return appErrors.NewNoTargets(campaignID)
	}

	account, err := s.AccountRepo.GetByID(campaign.AccountID)
	if err != nil {
		return err
	}
	if !account.Sendable() {
		return appErrors.NewAccountNotSendable(campaign.AccountID)
	}

	if ok, problems := personalize.Validate(campaign.MessageTemplate); !ok {
		return appErrors.NewInvalidTemplate(problems)
	}
	return nil
}

// RenderPreview renders the campaign template against one of its targets,
// or against an override template supplied by the operator.
func (s *CampaignService) RenderPreview(campaignID int, target *model.Target, overrideTemplate *string) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", err
	}

	template := campaign.MessageTemplate
	if overrideTemplate != nil && *overrideTemplate != "" {
		template = *overrideTemplate
	}
	if ok, problems := personalize.Validate(template); !ok {
		return "", appErrors.NewInvalidTemplate(problems)
	}

	return personalize.Render(template, target), nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, accountID int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, accountID, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaignDetails fetches a campaign with its per-status target counts.
func (s *CampaignService) GetCampaignDetails(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.TargetRepo.GetCampaignStats(campaignID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	stats["total"] = total

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// ListSendRecords returns the campaign's delivery-attempt history, newest
// first, capped at limit (default 100).
func (s *CampaignService) ListSendRecords(campaignID, limit int) ([]*model.SendRecord, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return nil, err
	}
	return s.SendRecordRepo.ListByCampaign(campaignID, limit)
}
