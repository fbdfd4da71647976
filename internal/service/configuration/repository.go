// Package configuration manages newsletter configuration records: the named
// policies (cadence, audience, approval tier, AI parameters) that issues are
// generated from. The workflow engine never deletes a configuration.
package configuration

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
)

// Repository defines the data access contract for configurations.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single configuration.
	// Returns *domain.NotFoundError if it doesn't exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.NewsletterConfiguration, error)

	// List returns configurations matching the filter plus the total match
	// count, ordered by creation time ascending.
	List(ctx context.Context, f ListFilter) ([]domain.NewsletterConfiguration, int, error)

	// Create inserts a new configuration.
	Create(ctx context.Context, c *domain.NewsletterConfiguration) error

	// Update applies a field-level patch. Only non-nil fields are written;
	// updated_at is always refreshed.
	Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*domain.NewsletterConfiguration, error)
}

// ListFilter controls filtering and pagination for configuration lists.
// IsActive is tri-state: nil means no filter, not false.
type ListFilter struct {
	SegmentID *uuid.UUID
	IsActive  *bool
	Limit     int
	Offset    int
}

// UpdateFields holds the mutable fields for a configuration patch.
// Nil fields are not applied.
type UpdateFields struct {
	Name          *string
	Description   *string
	Cadence       *domain.Cadence
	SendDayOfWeek *int
	SendTimeUTC   *string
	Timezone      *string
	MaxBlocks     *int
	ApprovalTier  *domain.ApprovalTier
	RiskLevel     *domain.RiskLevel
	AIProvider    *string
	AIModel       *string
	PromptVersion *int
	IsActive      *bool
}
