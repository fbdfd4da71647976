package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
)

// ListConfigurations handles GET /api/newsletter-configurations.
func (h *Handlers) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, DefaultPageSize, MaxPageSize)
	f := configuration.ListFilter{Limit: params.PageSize, Offset: params.Offset}

	q := r.URL.Query()
	if raw := q.Get("segment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid segment_id parameter")
			return
		}
		f.SegmentID = &id
	}
	if raw := q.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid is_active parameter")
			return
		}
		f.IsActive = &active
	}

	configs, total, err := h.configs.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewPaginatedResponse(configs, params, total))
}

// GetConfiguration handles GET /api/newsletter-configurations/{id}.
func (h *Handlers) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.configs.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": c})
}

// CreateConfiguration handles POST /api/newsletter-configurations.
func (h *Handlers) CreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var input configuration.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	input.CreatedBy = actorID(r)

	c, err := h.configs.Create(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"data": c})
}

type updateConfigurationRequest struct {
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	Cadence       *domain.Cadence      `json:"cadence"`
	SendDayOfWeek *int                 `json:"send_day_of_week"`
	SendTimeUTC   *string              `json:"send_time_utc"`
	Timezone      *string              `json:"timezone"`
	MaxBlocks     *int                 `json:"max_blocks"`
	ApprovalTier  *domain.ApprovalTier `json:"approval_tier"`
	RiskLevel     *domain.RiskLevel    `json:"risk_level"`
	AIProvider    *string              `json:"ai_provider"`
	AIModel       *string              `json:"ai_model"`
	PromptVersion *int                 `json:"prompt_version"`
	IsActive      *bool                `json:"is_active"`
}

// UpdateConfiguration handles PUT /api/newsletter-configurations/{id}.
func (h *Handlers) UpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req updateConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	c, err := h.configs.Update(r.Context(), id, configuration.UpdateFields{
		Name:          req.Name,
		Description:   req.Description,
		Cadence:       req.Cadence,
		SendDayOfWeek: req.SendDayOfWeek,
		SendTimeUTC:   req.SendTimeUTC,
		Timezone:      req.Timezone,
		MaxBlocks:     req.MaxBlocks,
		ApprovalTier:  req.ApprovalTier,
		RiskLevel:     req.RiskLevel,
		AIProvider:    req.AIProvider,
		AIModel:       req.AIModel,
		PromptVersion: req.PromptVersion,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": c})
}

// DeleteConfigurationNotSupported handles DELETE /api/newsletter-configurations/{id}.
// Configurations are deactivated, never deleted.
func (h *Handlers) DeleteConfigurationNotSupported(w http.ResponseWriter, r *http.Request) {
	writeDomainError(w, &domain.MethodNotSupportedError{Op: "configuration deletion (deactivate with is_active instead)"})
}
