package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/issue"
)

func parseIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: "id", Reason: "invalid id"}
	}
	return id, nil
}

// actorID resolves the authenticated user: authentication itself happens
// upstream, the engine only receives the identity header.
func actorID(r *http.Request) *uuid.UUID {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// ListIssues handles GET /api/newsletter-issues.
func (h *Handlers) ListIssues(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, DefaultPageSize, MaxPageSize)
	f := issue.ListFilter{Limit: params.PageSize, Offset: params.Offset}

	q := r.URL.Query()
	if raw := q.Get("configuration_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid configuration_id parameter")
			return
		}
		f.ConfigurationID = &id
	}
	if raw := q.Get("segment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid segment_id parameter")
			return
		}
		f.SegmentID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.IssueStatus(raw)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "validation", "invalid status parameter")
			return
		}
		f.Status = &status
	}

	issues, total, err := h.issues.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewPaginatedResponse(issues, params, total))
}

// GetIssue handles GET /api/newsletter-issues/{id}.
func (h *Handlers) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	n, err := h.issues.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

// CreateIssueNotSupported handles POST /api/newsletter-issues. Issues are
// only born through generate.
func (h *Handlers) CreateIssueNotSupported(w http.ResponseWriter, r *http.Request) {
	writeDomainError(w, &domain.MethodNotSupportedError{Op: "direct issue creation (use generate)"})
}

type generateRequest struct {
	ConfigurationID string     `json:"configuration_id"`
	ScheduledFor    *time.Time `json:"scheduled_for"`
}

// GenerateIssue handles POST /api/newsletter-issues/generate.
func (h *Handlers) GenerateIssue(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if req.ConfigurationID == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "configuration_id is required")
		return
	}
	configID, err := uuid.Parse(req.ConfigurationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid configuration_id")
		return
	}

	result, err := h.generator.Generate(r.Context(), configID, req.ScheduledFor, actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "newsletter issue generation started",
		"issue_id": result.IssueID,
		"job_id":   result.JobID,
	})
}

// GetGenerationJob handles GET /api/generation-jobs/{id}.
func (h *Handlers) GetGenerationJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	job, err := h.generator.ResolveJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": job})
}

type blockRequest struct {
	ID             *uuid.UUID  `json:"id"`
	BlockType      string      `json:"block_type"`
	Position       int         `json:"position"`
	Title          *string     `json:"title"`
	Subtitle       *string     `json:"subtitle"`
	Content        *string     `json:"content"`
	CTALabel       *string     `json:"cta_label"`
	CTAURL         *string     `json:"cta_url"`
	ContentItemIDs []uuid.UUID `json:"content_item_ids"`
	IsPromotional  bool        `json:"is_promotional"`
	TopicTags      []string    `json:"topic_tags"`
}

// updateIssueRequest enumerates every patchable issue field. Status is not
// among them: it only moves through the workflow endpoints.
type updateIssueRequest struct {
	SubjectLines        *[]string       `json:"subject_lines"`
	SelectedSubjectLine *string         `json:"selected_subject_line"`
	PreviewText         *string         `json:"preview_text"`
	IssueDate           *time.Time      `json:"issue_date"`
	ScheduledFor        *time.Time      `json:"scheduled_for"`
	Blocks              *[]blockRequest `json:"blocks"`
}

// UpdateIssue handles PUT /api/newsletter-issues/{id}.
func (h *Handlers) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req updateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	patch := issue.UpdateFields{
		SubjectLines:        req.SubjectLines,
		SelectedSubjectLine: req.SelectedSubjectLine,
		PreviewText:         req.PreviewText,
		IssueDate:           req.IssueDate,
		ScheduledFor:        req.ScheduledFor,
	}
	if req.Blocks != nil {
		blocks := make([]domain.NewsletterBlock, 0, len(*req.Blocks))
		for _, b := range *req.Blocks {
			block := domain.NewsletterBlock{
				BlockType:      domain.BlockType(b.BlockType),
				Position:       b.Position,
				Title:          b.Title,
				Subtitle:       b.Subtitle,
				Content:        b.Content,
				CTALabel:       b.CTALabel,
				CTAURL:         b.CTAURL,
				ContentItemIDs: b.ContentItemIDs,
				IsPromotional:  b.IsPromotional,
				TopicTags:      b.TopicTags,
			}
			if b.ID != nil {
				block.ID = *b.ID
			}
			blocks = append(blocks, block)
		}
		patch.Blocks = &blocks
	}

	n, err := h.issues.Update(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

// DeleteIssue handles DELETE /api/newsletter-issues/{id}.
func (h *Handlers) DeleteIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.issues.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitForApproval handles POST /api/newsletter-issues/{id}/submit-for-approval.
func (h *Handlers) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	n, err := h.issues.SubmitForApproval(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

// ApproveIssue handles POST /api/newsletter-issues/{id}/approve. The
// approver identity comes from the upstream-authenticated X-User-ID header.
func (h *Handlers) ApproveIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	approver := actorID(r)
	if approver == nil {
		writeError(w, http.StatusBadRequest, "missing_field", "X-User-ID header is required to approve")
		return
	}
	n, err := h.issues.Approve(r.Context(), id, *approver)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectIssue handles POST /api/newsletter-issues/{id}/reject.
func (h *Handlers) RejectIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "reason is required")
		return
	}
	n, err := h.issues.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

type scheduleRequest struct {
	ScheduledFor *time.Time `json:"scheduled_for"`
}

// ScheduleIssue handles POST /api/newsletter-issues/{id}/schedule.
func (h *Handlers) ScheduleIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if req.ScheduledFor == nil {
		writeError(w, http.StatusBadRequest, "missing_field", "scheduled_for is required")
		return
	}
	n, err := h.issues.Schedule(r.Context(), id, req.ScheduledFor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

type markSentRequest struct {
	Metrics *domain.SendMetrics `json:"metrics"`
}

// MarkIssueSent handles POST /api/newsletter-issues/{id}/mark-sent: the
// completion hook the external scheduler/delivery subsystem calls at send
// time. The snapshot comes from the request body, or the configured
// delivery provider when the body carries none.
func (h *Handlers) MarkIssueSent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req markSentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid request body")
			return
		}
	}

	var metrics domain.SendMetrics
	switch {
	case req.Metrics != nil:
		metrics = *req.Metrics
	case h.delivery != nil:
		n, err := h.issues.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metrics, err = h.delivery.SnapshotMetrics(r.Context(), n)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	n, err := h.issues.MarkSent(r.Context(), id, metrics)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": n})
}

// PreviewIssue handles GET /api/newsletter-issues/{id}/preview.
func (h *Handlers) PreviewIssue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var contactID *uuid.UUID
	if raw := r.URL.Query().Get("contact_id"); raw != "" {
		cid, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid contact_id parameter")
			return
		}
		contactID = &cid
	}

	result, err := h.previews.Render(r.Context(), id, contactID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": result})
}
