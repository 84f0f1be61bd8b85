// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/dmcampaign-backend/internal/errors"
	"github.com/unclebandit/dmcampaign-backend/internal/model"
	"github.com/unclebandit/dmcampaign-backend/internal/service"
)

// RunPublisher hands run jobs to the worker; queue.Queue satisfies it.
type RunPublisher interface {
	PublishRun(campaignID int) error
}

type CampaignController struct {
	CampaignService *service.CampaignService
	BulkSendService *service.BulkSendService
	Queue           RunPublisher
	Log             zerolog.Logger
}

// Routes mounts the campaign endpoints on a chi router.
func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/campaigns", c.CreateCampaign)
	r.Get("/campaigns", c.ListCampaigns)
	r.Get("/campaigns/{id}", c.GetCampaignDetails)
	r.Post("/campaigns/{id}/targets", c.AddTargets)
	r.Post("/campaigns/{id}/personalized-preview", c.PersonalizedPreview)
	r.Post("/campaigns/{id}/send", c.StartSend)
	r.Post("/campaigns/{id}/pause", c.Pause)
	r.Post("/campaigns/{id}/retry-failed", c.RetryFailed)
	r.Get("/campaigns/{id}/progress", c.Progress)
	r.Get("/campaigns/{id}/records", c.ListSendRecords)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(body)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	accountID, _ := strconv.Atoi(r.URL.Query().Get("account_id"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, accountID, status)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(details)
}

func (c *CampaignController) AddTargets(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		Targets []*model.Target `json:"targets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	n, err := c.CampaignService.AddTargets(id, body.Targets)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]int{"added": n})
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		Target           *model.Target `json:"target"`
		OverrideTemplate *string       `json:"override_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.CampaignService.RenderPreview(id, body.Target, body.OverrideTemplate)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"rendered_message": rendered,
	})
}

// StartSend validates the campaign and enqueues a run job; the worker does
// the actual sending so this call returns immediately.
func (c *CampaignController) StartSend(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.CampaignService.ValidateForActivation(id); err != nil {
		writeError(w, err)
		return
	}
	if err := c.Queue.PublishRun(id); err != nil {
		c.Log.Error().Int("campaign_id", id).Err(err).Msg("failed to enqueue run")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"status":      "queued",
	})
}

func (c *CampaignController) Pause(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	paused := c.BulkSendService.Pause(id)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"paused":      paused,
	})
}

func (c *CampaignController) RetryFailed(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		TargetIDs []int `json:"target_ids"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}

	n, err := c.BulkSendService.PrepareRetry(id, body.TargetIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	if n > 0 {
		if err := c.Queue.PublishRun(id); err != nil {
			c.Log.Error().Int("campaign_id", id).Err(err).Msg("failed to enqueue retry run")
			writeError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"reset":       n,
		"status":      "queued",
	})
}

func (c *CampaignController) Progress(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	snap, ok := c.BulkSendService.Progress(id)
	if !ok {
		http.Error(w, "no active run for campaign", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(snap)
}

func (c *CampaignController) ListSendRecords(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := c.CampaignService.ListSendRecords(id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": records,
	})
}

// writeError maps the typed precondition errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch err.(type) {
	case *appErrors.ErrCampaignNotFound:
		status = http.StatusNotFound
	case *appErrors.ErrInvalidCampaignState, *appErrors.ErrNoTargets,
		*appErrors.ErrInvalidTemplate, *appErrors.ErrAccountNotSendable:
		status = http.StatusUnprocessableEntity
	case *appErrors.ErrRunInProgress:
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
