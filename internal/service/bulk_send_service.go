// internal/service/bulk_send_service.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unclebandit/dmcampaign-backend/internal/delivery"
	appErrors "github.com/unclebandit/dmcampaign-backend/internal/errors"
	"github.com/unclebandit/dmcampaign-backend/internal/model"
	"github.com/unclebandit/dmcampaign-backend/internal/personalize"
	"github.com/unclebandit/dmcampaign-backend/internal/progress"
	"github.com/unclebandit/dmcampaign-backend/internal/ratelimit"
	"github.com/unclebandit/dmcampaign-backend/internal/retry"
)

// Store is the persistence the orchestrator depends on. SaveTargetResult is
// transactional: target status and SendRecord commit together or neither does.
type Store interface {
	GetCampaign(id int) (*model.Campaign, error)
	GetAccount(id int) (*model.Account, error)
	UpdateCampaign(c *model.Campaign) error
	UpdateCampaignStatus(id int, status string) error
	AddCampaignSent(campaignID, sent int) error
	ListPendingTargets(campaignID int) ([]*model.Target, error)
	ResetFailedTargets(campaignID int, targetIDs []int) (int, error)
	SaveTargetResult(t *model.Target, rec *model.SendRecord) error
}

// Run statuses reported in RunResult.
const (
	RunCompleted      = "completed"
	RunPartial        = "partial"
	RunPaused         = "paused"
	RunQuotaExhausted = "quota_exhausted"
	RunCanceled       = "canceled"
	RunAborted        = "aborted"
)

// TargetError is one per-target failure collected into the run result.
type TargetError struct {
	TargetID  int       `json:"target_id"`
	Username  string    `json:"username"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RunResult summarizes one orchestrator run.
type RunResult struct {
	CampaignID   int           `json:"campaign_id"`
	TotalTargets int           `json:"total_targets"`
	SentCount    int           `json:"sent_count"`
	FailedCount  int           `json:"failed_count"`
	Errors       []TargetError `json:"errors"`
	Duration     time.Duration `json:"duration"`
	Status       string        `json:"status"`
}

// BulkSendService drives one campaign run at a time per sending identity:
// it pulls pending targets, paces them through the account's rate limiter,
// personalizes, sends with retry, and persists each outcome before moving on.
type BulkSendService struct {
	Store    Store
	Client   delivery.Client
	Tracker  *progress.Tracker
	Limiters *ratelimit.Registry
	Retry    *retry.Runner
	Clock    ratelimit.Clock
	Log      zerolog.Logger

	runs *runLocks
}

func NewBulkSendService(store Store, client delivery.Client, log zerolog.Logger) *BulkSendService {
	return &BulkSendService{
		Store:    store,
		Client:   client,
		Tracker:  progress.NewTracker(),
		Limiters: ratelimit.NewRegistry(ratelimit.SystemClock),
		Retry:    retry.Default(),
		Clock:    ratelimit.SystemClock,
		Log:      log,
		runs:     newRunLocks(),
	}
}

// maxSleepSlice bounds any single sleep so an external pause or shutdown is
// honored within the slice, never after a multi-minute nap.
const maxSleepSlice = 60 * time.Second

// StartRun executes one blocking run for the campaign. Preconditions are
// checked before any state mutation; per-target failures never abort the run,
// only systemic (persistence) errors do.
func (s *BulkSendService) StartRun(ctx context.Context, campaignID int) (*RunResult, error) {
	campaign, err := s.Store.GetCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignPaused {
		return nil, appErrors.NewInvalidCampaignState(campaignID, campaign.Status, "draft or paused")
	}

	account, err := s.Store.GetAccount(campaign.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.Sendable() {
		return nil, appErrors.NewAccountNotSendable(campaign.AccountID)
	}

	if ok, problems := personalize.Validate(campaign.MessageTemplate); !ok {
		return nil, appErrors.NewInvalidTemplate(problems)
	}

	targets, err := s.Store.ListPendingTargets(campaignID)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, appErrors.NewNoTargets(campaignID)
	}

	// One run per sending identity. The guard lives here, not in the state
	// machine, because two campaigns can share one account.
	if !s.runs.acquire(account.ID) {
		return nil, appErrors.NewRunInProgress(account.ID)
	}
	defer s.runs.release(account.ID)

	now := s.Clock.Now()
	if err := campaign.Activate(len(targets), now); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateCampaign(campaign); err != nil {
		return nil, err
	}

	limiter := s.Limiters.ForAccount(account.ID, campaign.DailyLimit, campaign.DelayMin)

	snap := progress.Snapshot{
		CampaignID:   campaignID,
		TotalTargets: len(targets),
		Status:       progress.StatusRunning,
		StartedAt:    now,
	}
	s.Tracker.Set(snap)
	defer s.Tracker.Remove(campaignID)

	s.Log.Info().Int("campaign_id", campaignID).Int("targets", len(targets)).
		Int("daily_limit", campaign.DailyLimit).Msg("starting campaign run")

	start := time.Now()
	result, runErr := s.sendBatch(ctx, campaign, targets, limiter, &snap)
	result.Duration = time.Since(start)

	if err := s.finishRun(campaign, targets, result); err != nil && runErr == nil {
		runErr = err
	}

	s.Log.Info().Int("campaign_id", campaignID).Str("status", result.Status).
		Int("sent", result.SentCount).Int("failed", result.FailedCount).
		Dur("duration", result.Duration).Msg("campaign run finished")

	return result, runErr
}

// sendBatch iterates pending targets in creation order. Each target yields
// exactly one SendRecord; pause and cancellation are observed between
// targets, never mid-attempt.
func (s *BulkSendService) sendBatch(ctx context.Context, campaign *model.Campaign,
	targets []*model.Target, limiter *ratelimit.Limiter, snap *progress.Snapshot) (*RunResult, error) {

	result := &RunResult{
		CampaignID:   campaign.ID,
		TotalTargets: len(targets),
		Errors:       []TargetError{},
		Status:       RunCompleted,
	}

	for _, target := range targets {
		paused, err := s.campaignPaused(campaign.ID)
		if err != nil {
			result.Status = RunAborted
			return result, err
		}
		if paused {
			s.Log.Info().Int("campaign_id", campaign.ID).Msg("campaign paused, stopping run")
			result.Status = RunPaused
			return result, nil
		}

		snap.CurrentTarget = target.Username
		s.Tracker.Set(*snap)

		stop, err := s.waitForSlot(ctx, campaign.ID, limiter)
		if err != nil {
			result.Status = RunAborted
			return result, err
		}
		if stop != "" {
			result.Status = stop
			return result, nil
		}

		text := campaign.MessageTemplate
		if campaign.PersonalizationEnabled {
			text = personalize.Render(campaign.MessageTemplate, target)
		}

		messageID, sendErr := s.sendOne(ctx, target, text)
		if sendErr != nil && (errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded)) {
			// Shutdown mid-wait: the target was not attempted, leave it pending.
			result.Status = RunCanceled
			return result, nil
		}

		now := s.Clock.Now()
		rec := &model.SendRecord{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			TargetID:   target.ID,
			Content:    text,
			QueuedAt:   now,
		}

		if sendErr == nil {
			target.MarkSent(now)
			rec.Status = model.SendRecordSent
			rec.ChannelMessageID = messageID
			rec.SentAt = &now
		} else {
			target.MarkFailed(sendErr.Error())
			rec.Status = model.SendRecordFailed
			rec.ErrorMessage = sendErr.Error()
		}

		if err := s.Store.SaveTargetResult(target, rec); err != nil {
			// Persistence down: abort, leaving state as last durably committed.
			result.Status = RunAborted
			return result, err
		}

		if sendErr == nil {
			limiter.RecordSend()
			result.SentCount++
			snap.Sent++
			s.Log.Debug().Int("campaign_id", campaign.ID).Str("username", target.Username).
				Str("message_id", rec.ChannelMessageID).Msg("sent")
		} else {
			result.FailedCount++
			snap.Failed++
			result.Errors = append(result.Errors, TargetError{
				TargetID:  target.ID,
				Username:  target.Username,
				Error:     sendErr.Error(),
				Timestamp: now,
			})
			s.Log.Warn().Int("campaign_id", campaign.ID).Str("username", target.Username).
				Err(sendErr).Msg("send failed")
		}

		snap.Processed++
		s.Tracker.Set(*snap)
	}

	if result.FailedCount > 0 {
		result.Status = RunPartial
	}
	snap.Status = progress.StatusCompleted
	s.Tracker.Set(*snap)
	return result, nil
}

// sendOne delivers one message with retry. The delivery client's error is
// classified exactly once, here, before the runner sees it.
func (s *BulkSendService) sendOne(ctx context.Context, target *model.Target, text string) (string, error) {
	var messageID string
	err := s.Retry.Run(ctx, func() error {
		id, err := s.Client.Send(ctx, target.RecipientID, text)
		if err != nil {
			return delivery.Classify(err)
		}
		messageID = id
		return nil
	})
	return messageID, err
}

// waitForSlot blocks until the limiter permits a send, sleeping in bounded
// slices and re-checking pause after each. A spent daily quota ends the run
// instead of sleeping until midnight; remaining targets stay pending.
func (s *BulkSendService) waitForSlot(ctx context.Context, campaignID int, limiter *ratelimit.Limiter) (string, error) {
	for !limiter.CanSend() {
		if limiter.QuotaExhausted() {
			s.Log.Info().Int("campaign_id", campaignID).
				Int("wait_seconds", limiter.WaitSeconds()).Msg("daily quota exhausted, ending run")
			return RunQuotaExhausted, nil
		}

		wait := time.Duration(limiter.WaitSeconds()) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		if wait > maxSleepSlice {
			wait = maxSleepSlice
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return RunCanceled, nil
		}

		paused, err := s.campaignPaused(campaignID)
		if err != nil {
			return "", err
		}
		if paused {
			return RunPaused, nil
		}
	}
	return "", nil
}

// finishRun settles the campaign after the loop: completion when nothing is
// left pending, failure when every attempt failed, otherwise the campaign
// keeps its current status (active, or paused if a pause ended the loop).
func (s *BulkSendService) finishRun(campaign *model.Campaign, targets []*model.Target, result *RunResult) error {
	current, err := s.Store.GetCampaign(campaign.ID)
	if err != nil {
		return err
	}

	if current.Status == model.CampaignActive {
		attempted := result.SentCount + result.FailedCount
		switch {
		case result.SentCount == 0 && result.FailedCount > 0:
			if err := current.Fail(); err == nil {
				if err := s.Store.UpdateCampaignStatus(current.ID, current.Status); err != nil {
					return err
				}
			}
		case attempted == len(targets):
			// No pending targets remain; partial failures still complete.
			if err := current.Complete(s.Clock.Now()); err == nil {
				if err := s.Store.UpdateCampaign(current); err != nil {
					return err
				}
			}
		}
		// Quota exhaustion or partial failure leaves the campaign active so a
		// later run can pick up the remaining pending targets.
	}

	if result.SentCount > 0 {
		return s.Store.AddCampaignSent(campaign.ID, result.SentCount)
	}
	return nil
}

// Pause flips an active campaign to paused. The running loop observes the
// change on its next target-level check; the in-flight attempt finishes.
func (s *BulkSendService) Pause(campaignID int) bool {
	campaign, err := s.Store.GetCampaign(campaignID)
	if err != nil {
		return false
	}
	if err := campaign.Pause(); err != nil {
		return false
	}
	if err := s.Store.UpdateCampaignStatus(campaignID, campaign.Status); err != nil {
		return false
	}
	s.Log.Info().Int("campaign_id", campaignID).Msg("campaign paused")
	return true
}

// Progress returns the live snapshot for a campaign, if a run is active.
func (s *BulkSendService) Progress(campaignID int) (progress.Snapshot, bool) {
	return s.Tracker.Get(campaignID)
}

// RetryFailed resets the campaign's failed targets (optionally limited to
// targetIDs) back to pending and starts a fresh run over them.
func (s *BulkSendService) RetryFailed(ctx context.Context, campaignID int, targetIDs []int) (*RunResult, error) {
	n, err := s.PrepareRetry(campaignID, targetIDs)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &RunResult{CampaignID: campaignID, Errors: []TargetError{}, Status: RunCompleted}, nil
	}
	return s.StartRun(ctx, campaignID)
}

// PrepareRetry performs the reset half of RetryFailed without blocking on
// the run, so an API caller can enqueue the run for the worker instead.
// Returns how many targets were reset.
func (s *BulkSendService) PrepareRetry(campaignID int, targetIDs []int) (int, error) {
	campaign, err := s.Store.GetCampaign(campaignID)
	if err != nil {
		return 0, err
	}

	n, err := s.Store.ResetFailedTargets(campaignID, targetIDs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	// A completed or failed campaign becomes resumable again once its failed
	// targets are reset; paused is the resumable state StartRun expects.
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignPaused {
		if err := s.Store.UpdateCampaignStatus(campaignID, model.CampaignPaused); err != nil {
			return 0, err
		}
	}

	s.Log.Info().Int("campaign_id", campaignID).Int("reset", n).Msg("failed targets reset for retry")
	return n, nil
}

func (s *BulkSendService) campaignPaused(campaignID int) (bool, error) {
	current, err := s.Store.GetCampaign(campaignID)
	if err != nil {
		return false, err
	}
	return current.Status == model.CampaignPaused, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
