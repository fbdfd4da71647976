package domain

import (
	"time"

	"github.com/google/uuid"
)

// Segment is a named audience slice with targeting and engagement criteria.
// Read-mostly reference data for configurations and issues.
type Segment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	Industries           []string `json:"industries,omitempty" db:"industries"`
	Regions              []string `json:"regions,omitempty" db:"regions"`
	ComplianceFrameworks []string `json:"compliance_frameworks,omitempty" db:"compliance_frameworks"`
	MinEngagementScore   float64  `json:"min_engagement_score" db:"min_engagement_score"`

	ContactCount int  `json:"contact_count" db:"contact_count"`
	IsActive     bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the structural invariants of a segment.
func (s *Segment) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if s.ContactCount < 0 {
		return &ValidationError{Field: "contact_count", Reason: "cannot be negative"}
	}
	return nil
}

// ContactProfile is the personalization lookup result for preview rendering.
// Profile resolution is an external collaborator; the engine only consumes
// the resolved fields.
type ContactProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Company   string    `json:"company"`
	Industry  string    `json:"industry"`
}
