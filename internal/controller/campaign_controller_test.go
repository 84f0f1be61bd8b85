package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/dmcampaign-backend/internal/errors"
	"github.com/unclebandit/dmcampaign-backend/internal/model"
	"github.com/unclebandit/dmcampaign-backend/internal/service"
)

// Minimal mocks for the repo and store interfaces the controller reaches.

type stubCampaignRepo struct {
	campaign *model.Campaign
}

func (m *stubCampaignRepo) Create(c *model.Campaign) error {
	c.ID = 1
	return nil
}

func (m *stubCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	if m.campaign == nil || m.campaign.ID != id {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return m.campaign, nil
}

func (m *stubCampaignRepo) Update(c *model.Campaign) error            { return nil }
func (m *stubCampaignRepo) UpdateStatus(id int, status string) error  { return nil }
func (m *stubCampaignRepo) AddCounts(campaignID, sentDelta int) error { return nil }
func (m *stubCampaignRepo) ListDueScheduled(now time.Time) ([]*model.Campaign, error) {
	return nil, nil
}
func (m *stubCampaignRepo) ListCampaigns(offset, limit int, accountID int, status string) ([]*model.Campaign, int, error) {
	return []*model.Campaign{}, 0, nil
}

type stubTargetRepo struct {
	count int
}

func (m *stubTargetRepo) CreateBatch(campaignID int, targets []*model.Target) (int, error) {
	return len(targets), nil
}
func (m *stubTargetRepo) ListPending(campaignID int) ([]*model.Target, error) { return nil, nil }
func (m *stubTargetRepo) CountByCampaign(campaignID int) (int, error)         { return m.count, nil }
func (m *stubTargetRepo) Update(t *model.Target) error                        { return nil }
func (m *stubTargetRepo) ResetFailed(campaignID int, targetIDs []int) (int, error) {
	return 0, nil
}
func (m *stubTargetRepo) GetCampaignStats(campaignID int) (map[string]int, error) {
	return map[string]int{"pending": 0, "sent": 0, "failed": 0, "replied": 0}, nil
}

type stubSendRecordRepo struct {
	records []*model.SendRecord
}

func (m *stubSendRecordRepo) ListByCampaign(campaignID, limit int) ([]*model.SendRecord, error) {
	return m.records, nil
}

type stubAccountRepo struct{}

func (m *stubAccountRepo) GetByID(id int) (*model.Account, error) {
	return &model.Account{ID: id, ConnectionStatus: model.AccountConnected, AuthToken: "tok"}, nil
}

type stubStore struct {
	campaign *model.Campaign
}

func (s *stubStore) GetCampaign(id int) (*model.Campaign, error) {
	if s.campaign == nil || s.campaign.ID != id {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	c := *s.campaign
	return &c, nil
}
func (s *stubStore) GetAccount(id int) (*model.Account, error)       { return nil, nil }
func (s *stubStore) UpdateCampaign(c *model.Campaign) error          { return nil }
func (s *stubStore) UpdateCampaignStatus(id int, status string) error {
	s.campaign.Status = status
	return nil
}
func (s *stubStore) AddCampaignSent(campaignID, sent int) error { return nil }
func (s *stubStore) ListPendingTargets(campaignID int) ([]*model.Target, error) {
	return nil, nil
}
func (s *stubStore) ResetFailedTargets(campaignID int, targetIDs []int) (int, error) {
	return 0, nil
}
func (s *stubStore) SaveTargetResult(t *model.Target, rec *model.SendRecord) error { return nil }

type stubPublisher struct {
	published []int
}

func (p *stubPublisher) PublishRun(campaignID int) error {
	p.published = append(p.published, campaignID)
	return nil
}

func newTestController(campaign *model.Campaign, targetCount int) (*CampaignController, *stubPublisher) {
	repo := &stubCampaignRepo{campaign: campaign}
	pub := &stubPublisher{}

	campaignService := &service.CampaignService{
		CampaignRepo:   repo,
		TargetRepo:     &stubTargetRepo{count: targetCount},
		AccountRepo:    &stubAccountRepo{},
		SendRecordRepo: &stubSendRecordRepo{records: []*model.SendRecord{{ID: "rec-1", CampaignID: 1}}},
		Log:            zerolog.Nop(),
	}
	bulk := service.NewBulkSendService(&stubStore{campaign: campaign}, nil, zerolog.Nop())

	return &CampaignController{
		CampaignService: campaignService,
		BulkSendService: bulk,
		Queue:           pub,
		Log:             zerolog.Nop(),
	}, pub
}

func serve(c *CampaignController, method, path string, body interface{}) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	c.Routes(r)

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateCampaignEndpoint(t *testing.T) {
	c, _ := newTestController(nil, 0)

	rec := serve(c, http.MethodPost, "/campaigns", map[string]interface{}{
		"account_id":       10,
		"name":             "outreach",
		"message_template": "Hi {name}",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var got model.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, model.CampaignDraft, got.Status)
}

func TestCreateCampaignRejectsUnknownPlaceholder(t *testing.T) {
	c, _ := newTestController(nil, 0)

	rec := serve(c, http.MethodPost, "/campaigns", map[string]interface{}{
		"name":             "bad",
		"message_template": "Hi {whoops}",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	c, _ := newTestController(nil, 0)

	rec := serve(c, http.MethodGet, "/campaigns/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSendQueuesRunJob(t *testing.T) {
	campaign := &model.Campaign{
		ID: 1, AccountID: 10, Status: model.CampaignDraft, MessageTemplate: "Hi {name}",
	}
	c, pub := newTestController(campaign, 3)

	rec := serve(c, http.MethodPost, "/campaigns/1/send", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int{1}, pub.published)
}

func TestStartSendRejectsActiveCampaign(t *testing.T) {
	campaign := &model.Campaign{
		ID: 1, AccountID: 10, Status: model.CampaignActive, MessageTemplate: "Hi {name}",
	}
	c, pub := newTestController(campaign, 3)

	rec := serve(c, http.MethodPost, "/campaigns/1/send", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, pub.published, "a run that the worker would reject must not be enqueued")
}

func TestStartSendRejectsCampaignWithoutTargets(t *testing.T) {
	campaign := &model.Campaign{
		ID: 1, AccountID: 10, Status: model.CampaignDraft, MessageTemplate: "Hi {name}",
	}
	c, pub := newTestController(campaign, 0)

	rec := serve(c, http.MethodPost, "/campaigns/1/send", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, pub.published, "nothing queued on precondition failure")
}

func TestProgressWithoutActiveRun(t *testing.T) {
	c, _ := newTestController(nil, 0)

	rec := serve(c, http.MethodGet, "/campaigns/1/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSendRecords(t *testing.T) {
	campaign := &model.Campaign{ID: 1, AccountID: 10, Status: model.CampaignActive}
	c, _ := newTestController(campaign, 3)

	rec := serve(c, http.MethodGet, "/campaigns/1/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Data []*model.SendRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Data, 1)
	assert.Equal(t, "rec-1", got.Data[0].ID)
}

func TestPauseEndpoint(t *testing.T) {
	campaign := &model.Campaign{ID: 1, AccountID: 10, Status: model.CampaignActive}
	c, _ := newTestController(campaign, 3)

	rec := serve(c, http.MethodPost, "/campaigns/1/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["paused"])
}
