package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter-engine/internal/delivery"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/jobs"
	"github.com/ignite/newsletter-engine/internal/repository/memory"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
	"github.com/ignite/newsletter-engine/internal/service/generation"
	"github.com/ignite/newsletter-engine/internal/service/issue"
	"github.com/ignite/newsletter-engine/internal/service/preview"
	"github.com/ignite/newsletter-engine/internal/service/segment"
)

type testEnv struct {
	router   http.Handler
	handlers *Handlers
	configs  *configuration.Service
	segments *segment.Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	issueRepo := memory.NewIssueRepo()
	configRepo := memory.NewConfigurationRepo()
	segRepo := memory.NewSegmentRepo()

	handlers := NewHandlers(
		issue.NewService(issueRepo),
		generation.NewCoordinator(issueRepo, configRepo, jobs.NewMemoryStore()),
		preview.NewRenderer(issueRepo),
		configuration.NewService(configRepo),
		segment.NewService(segRepo),
	)
	return &testEnv{
		router:   SetupRoutes(handlers),
		handlers: handlers,
		configs:  configuration.NewService(configRepo),
		segments: segment.NewService(segRepo),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(payload)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createConfiguration(t *testing.T) *domain.NewsletterConfiguration {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/segments", map[string]interface{}{"name": "CISOs"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var segResp struct {
		Data domain.Segment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &segResp))

	rec = e.do(t, http.MethodPost, "/api/newsletter-configurations", map[string]interface{}{
		"name":       "Threat Brief",
		"segment_id": segResp.Data.ID,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var cfgResp struct {
		Data domain.NewsletterConfiguration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfgResp))
	return &cfgResp.Data
}

func (e *testEnv) generateIssue(t *testing.T, configID uuid.UUID) (issueID, jobID string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/newsletter-issues/generate", map[string]interface{}{
		"configuration_id": configID,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		IssueID string `json:"issue_id"`
		JobID   string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.IssueID, resp.JobID
}

func decodeIssue(t *testing.T, rec *httptest.ResponseRecorder) *domain.NewsletterIssue {
	t.Helper()
	var resp struct {
		Data domain.NewsletterIssue `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestIssueWorkflowEndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)
	issueID, jobID := env.generateIssue(t, cfg.ID)

	// The job handle resolves to the new issue.
	rec := env.do(t, http.MethodGet, "/api/generation-jobs/"+jobID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobResp struct {
		Data domain.GenerationJob `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobResp))
	assert.Equal(t, issueID, jobResp.Data.IssueID.String())

	// Edit the draft.
	rec = env.do(t, http.MethodPut, "/api/newsletter-issues/"+issueID, map[string]interface{}{
		"preview_text": "Big week in security.",
		"blocks": []map[string]interface{}{
			{"block_type": "hero", "position": 0, "title": "Lead story"},
			{"block_type": "news", "position": 1, "title": "Also happened"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	n := decodeIssue(t, rec)
	assert.Len(t, n.Blocks, 2)

	// Preview renders without mutating.
	rec = env.do(t, http.MethodGet, "/api/newsletter-issues/"+issueID+"/preview", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prevResp struct {
		Data preview.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prevResp))
	assert.Contains(t, prevResp.Data.HTMLContent, "Lead story")

	// Walk the workflow.
	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/submit-for-approval", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.IssuePendingApproval, decodeIssue(t, rec).Status)

	approver := uuid.New()
	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/approve", nil,
		map[string]string{"X-User-ID": approver.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	n = decodeIssue(t, rec)
	assert.Equal(t, domain.IssueApproved, n.Status)
	require.NotNil(t, n.ApprovedBy)
	assert.Equal(t, approver, *n.ApprovedBy)

	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/schedule", map[string]interface{}{
		"scheduled_for": "2026-09-01T14:00:00Z",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.IssueScheduled, decodeIssue(t, rec).Status)

	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/mark-sent", map[string]interface{}{
		"metrics": map[string]int{"total_recipients": 900, "total_delivered": 880},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	n = decodeIssue(t, rec)
	assert.Equal(t, domain.IssueSent, n.Status)
	assert.Equal(t, 900, n.Metrics.TotalRecipients)
	require.NotNil(t, n.SentAt)

	// Terminal: editing a sent issue fails.
	rec = env.do(t, http.MethodPut, "/api/newsletter-issues/"+issueID, map[string]interface{}{
		"preview_text": "too late",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_state", errorCode(t, rec))
}

func TestDirectIssueCreationNotAllowed(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/newsletter-issues", map[string]interface{}{"status": "sent"}, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method_not_supported", errorCode(t, rec))
}

func TestGenerateRequiresConfigurationID(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/newsletter-issues/generate", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_field", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/generate", map[string]interface{}{
		"configuration_id": uuid.New(),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestApproveRequiresIdentity(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)
	issueID, _ := env.generateIssue(t, cfg.ID)

	rec := env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/submit-for-approval", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/approve", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_field", errorCode(t, rec))
}

func TestRejectFlow(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)
	issueID, _ := env.generateIssue(t, cfg.ID)

	rec := env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/submit-for-approval", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/reject", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_field", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/reject", map[string]interface{}{
		"reason": "hero block is off-brand",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	n := decodeIssue(t, rec)
	assert.Equal(t, domain.IssueDraft, n.Status)
	require.NotNil(t, n.RejectionReason)
	assert.Equal(t, "hero block is off-brand", *n.RejectionReason)
}

func TestMarkSentUsesDeliveryProvider(t *testing.T) {
	env := setupTestEnv(t)
	env.handlers.SetDeliveryProvider(&delivery.StaticProvider{
		Metrics: domain.SendMetrics{TotalRecipients: 500, TotalDelivered: 495},
	})
	cfg := env.createConfiguration(t)
	issueID, _ := env.generateIssue(t, cfg.ID)

	env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/submit-for-approval", nil, nil)
	env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/approve", nil,
		map[string]string{"X-User-ID": uuid.New().String()})
	env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/schedule", map[string]interface{}{
		"scheduled_for": "2026-09-01T14:00:00Z",
	}, nil)

	// No body: the snapshot comes from the provider.
	rec := env.do(t, http.MethodPost, "/api/newsletter-issues/"+issueID+"/mark-sent", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	n := decodeIssue(t, rec)
	assert.Equal(t, 500, n.Metrics.TotalRecipients)
	assert.Equal(t, 495, n.Metrics.TotalDelivered)
}

func TestListIssuesPaginationAndFilters(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)
	for i := 0; i < 5; i++ {
		env.generateIssue(t, cfg.ID)
	}

	rec := env.do(t, http.MethodGet, "/api/newsletter-issues?page=2&page_size=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data       []domain.NewsletterIssue `json:"data"`
		Pagination PaginationMeta           `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 5, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)

	// Status filter.
	rec = env.do(t, http.MethodGet, "/api/newsletter-issues?status=draft", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Pagination.Total)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/newsletter-issues?configuration_id=%s&status=sent", cfg.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Pagination.Total)
	assert.Equal(t, 0, resp.Pagination.TotalPages)
	assert.NotNil(t, resp.Data)

	// Bad filter values are rejected.
	rec = env.do(t, http.MethodGet, "/api/newsletter-issues?status=nonsense", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/newsletter-issues?configuration_id=not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetIssueNotFound(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/newsletter-issues/"+uuid.New().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestDeleteIssue(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)
	issueID, _ := env.generateIssue(t, cfg.ID)

	rec := env.do(t, http.MethodDelete, "/api/newsletter-issues/"+issueID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/newsletter-issues/"+issueID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigurationDeleteNotSupported(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)

	rec := env.do(t, http.MethodDelete, "/api/newsletter-configurations/"+cfg.ID.String(), nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method_not_supported", errorCode(t, rec))
}

func TestConfigurationUpdate(t *testing.T) {
	env := setupTestEnv(t)
	cfg := env.createConfiguration(t)

	rec := env.do(t, http.MethodPut, "/api/newsletter-configurations/"+cfg.ID.String(), map[string]interface{}{
		"cadence":   "monthly",
		"is_active": false,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data domain.NewsletterConfiguration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.CadenceMonthly, resp.Data.Cadence)
	assert.False(t, resp.Data.IsActive)

	rec = env.do(t, http.MethodPut, "/api/newsletter-configurations/"+cfg.ID.String(), map[string]interface{}{
		"cadence": "hourly",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errorCode(t, rec))
}
