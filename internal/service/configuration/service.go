package configuration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
)

// Documented defaults applied to unspecified fields on create.
const (
	DefaultCadence       = domain.CadenceWeekly
	DefaultSendDayOfWeek = 2 // Tuesday
	DefaultSendTimeUTC   = "14:00"
	DefaultTimezone      = "UTC"
	DefaultMaxBlocks     = 5
	DefaultApprovalTier  = domain.Tier1
	DefaultRiskLevel     = domain.RiskStandard
	DefaultAIProvider    = "openai"
	DefaultAIModel       = "gpt-4o"
	DefaultPromptVersion = 1
)

// Service implements configuration business logic.
type Service struct {
	repo Repository
}

// NewService creates a configuration service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single configuration.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.NewsletterConfiguration, error) {
	return s.repo.Get(ctx, id)
}

// List returns configurations matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.NewsletterConfiguration, int, error) {
	return s.repo.List(ctx, f)
}

// CreateInput holds the fields for creating a new configuration.
// Unspecified fields take the documented defaults.
type CreateInput struct {
	Name          string               `json:"name"`
	Description   *string              `json:"description"`
	SegmentID     uuid.UUID            `json:"segment_id"`
	Cadence       domain.Cadence       `json:"cadence"`
	SendDayOfWeek *int                 `json:"send_day_of_week"`
	SendTimeUTC   string               `json:"send_time_utc"`
	Timezone      string               `json:"timezone"`
	MaxBlocks     int                  `json:"max_blocks"`
	ApprovalTier  domain.ApprovalTier  `json:"approval_tier"`
	RiskLevel     domain.RiskLevel     `json:"risk_level"`
	AIProvider    string               `json:"ai_provider"`
	AIModel       string               `json:"ai_model"`
	PromptVersion int                  `json:"prompt_version"`
	CreatedBy     *uuid.UUID           `json:"-"`
}

// Create validates and persists a new configuration, merging defaults into
// unspecified fields.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.NewsletterConfiguration, error) {
	if input.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}
	if input.SegmentID == uuid.Nil {
		return nil, &domain.ValidationError{Field: "segment_id", Reason: "segment_id is required"}
	}

	now := time.Now().UTC()
	c := &domain.NewsletterConfiguration{
		ID:            uuid.New(),
		Name:          input.Name,
		Description:   input.Description,
		SegmentID:     input.SegmentID,
		Cadence:       input.Cadence,
		SendDayOfWeek: DefaultSendDayOfWeek,
		SendTimeUTC:   input.SendTimeUTC,
		Timezone:      input.Timezone,
		MaxBlocks:     input.MaxBlocks,
		ApprovalTier:  input.ApprovalTier,
		RiskLevel:     input.RiskLevel,
		AIProvider:    input.AIProvider,
		AIModel:       input.AIModel,
		PromptVersion: input.PromptVersion,
		IsActive:      true,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c.Cadence == "" {
		c.Cadence = DefaultCadence
	}
	if input.SendDayOfWeek != nil {
		c.SendDayOfWeek = *input.SendDayOfWeek
	}
	if c.SendTimeUTC == "" {
		c.SendTimeUTC = DefaultSendTimeUTC
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.MaxBlocks == 0 {
		c.MaxBlocks = DefaultMaxBlocks
	}
	if c.ApprovalTier == "" {
		c.ApprovalTier = DefaultApprovalTier
	}
	if c.RiskLevel == "" {
		c.RiskLevel = DefaultRiskLevel
	}
	if c.AIProvider == "" {
		c.AIProvider = DefaultAIProvider
	}
	if c.AIModel == "" {
		c.AIModel = DefaultAIModel
	}
	if c.PromptVersion == 0 {
		c.PromptVersion = DefaultPromptVersion
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies a field-level patch and returns the updated configuration.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*domain.NewsletterConfiguration, error) {
	if patch.Cadence != nil && !patch.Cadence.IsValid() {
		return nil, &domain.ValidationError{Field: "cadence", Reason: "unknown cadence " + string(*patch.Cadence)}
	}
	if patch.ApprovalTier != nil && !patch.ApprovalTier.IsValid() {
		return nil, &domain.ValidationError{Field: "approval_tier", Reason: "unknown approval tier " + string(*patch.ApprovalTier)}
	}
	if patch.RiskLevel != nil && !patch.RiskLevel.IsValid() {
		return nil, &domain.ValidationError{Field: "risk_level", Reason: "unknown risk level " + string(*patch.RiskLevel)}
	}
	if patch.SendDayOfWeek != nil && (*patch.SendDayOfWeek < 0 || *patch.SendDayOfWeek > 6) {
		return nil, &domain.ValidationError{Field: "send_day_of_week", Reason: "must be 0-6"}
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}
	return s.repo.Update(ctx, id, patch)
}
