package segment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
)

// Service implements segment business logic.
type Service struct {
	repo Repository
}

// NewService creates a segment service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single segment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Segment, error) {
	return s.repo.Get(ctx, id)
}

// List returns segments matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Segment, int, error) {
	return s.repo.List(ctx, f)
}

// CreateInput holds the fields for creating a new segment.
type CreateInput struct {
	Name                 string   `json:"name"`
	Description          *string  `json:"description"`
	Industries           []string `json:"industries"`
	Regions              []string `json:"regions"`
	ComplianceFrameworks []string `json:"compliance_frameworks"`
	MinEngagementScore   float64  `json:"min_engagement_score"`
	ContactCount         int      `json:"contact_count"`
}

// Create validates and persists a new active segment.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Segment, error) {
	if input.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}

	now := time.Now().UTC()
	seg := &domain.Segment{
		ID:                   uuid.New(),
		Name:                 input.Name,
		Description:          input.Description,
		Industries:           input.Industries,
		Regions:              input.Regions,
		ComplianceFrameworks: input.ComplianceFrameworks,
		MinEngagementScore:   input.MinEngagementScore,
		ContactCount:         input.ContactCount,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := seg.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// Update applies a field-level patch and returns the updated segment.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*domain.Segment, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "name is required"}
	}
	if patch.ContactCount != nil && *patch.ContactCount < 0 {
		return nil, &domain.ValidationError{Field: "contact_count", Reason: "cannot be negative"}
	}
	return s.repo.Update(ctx, id, patch)
}
