package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ignite/newsletter-engine/internal/service/segment"
)

// ListSegments handles GET /api/segments.
func (h *Handlers) ListSegments(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, DefaultPageSize, MaxPageSize)
	f := segment.ListFilter{Limit: params.PageSize, Offset: params.Offset}

	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid is_active parameter")
			return
		}
		f.IsActive = &active
	}

	segments, total, err := h.segments.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewPaginatedResponse(segments, params, total))
}

// GetSegment handles GET /api/segments/{id}.
func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s, err := h.segments.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": s})
}

// CreateSegment handles POST /api/segments.
func (h *Handlers) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var input segment.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	s, err := h.segments.Create(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"data": s})
}

type updateSegmentRequest struct {
	Name                 *string   `json:"name"`
	Description          *string   `json:"description"`
	Industries           *[]string `json:"industries"`
	Regions              *[]string `json:"regions"`
	ComplianceFrameworks *[]string `json:"compliance_frameworks"`
	MinEngagementScore   *float64  `json:"min_engagement_score"`
	ContactCount         *int      `json:"contact_count"`
	IsActive             *bool     `json:"is_active"`
}

// UpdateSegment handles PUT /api/segments/{id}.
func (h *Handlers) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req updateSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	s, err := h.segments.Update(r.Context(), id, segment.UpdateFields{
		Name:                 req.Name,
		Description:          req.Description,
		Industries:           req.Industries,
		Regions:              req.Regions,
		ComplianceFrameworks: req.ComplianceFrameworks,
		MinEngagementScore:   req.MinEngagementScore,
		ContactCount:         req.ContactCount,
		IsActive:             req.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": s})
}
