// Package segment manages audience segments: the named slices with
// targeting and engagement criteria that configurations and issues point at.
package segment

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
)

// Repository defines the data access contract for segments.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single segment.
	// Returns *domain.NotFoundError if it doesn't exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Segment, error)

	// List returns segments matching the filter plus the total match count,
	// ordered by creation time ascending.
	List(ctx context.Context, f ListFilter) ([]domain.Segment, int, error)

	// Create inserts a new segment.
	Create(ctx context.Context, s *domain.Segment) error

	// Update applies a field-level patch. Only non-nil fields are written;
	// updated_at is always refreshed.
	Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*domain.Segment, error)
}

// ListFilter controls filtering and pagination for segment lists.
// IsActive is tri-state: nil means no filter, not false.
type ListFilter struct {
	IsActive *bool
	Limit    int
	Offset   int
}

// UpdateFields holds the mutable fields for a segment patch.
// Nil fields are not applied.
type UpdateFields struct {
	Name                 *string
	Description          *string
	Industries           *[]string
	Regions              *[]string
	ComplianceFrameworks *[]string
	MinEngagementScore   *float64
	ContactCount         *int
	IsActive             *bool
}
