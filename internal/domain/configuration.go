package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cadence enumerates newsletter delivery frequencies.
type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiWeekly Cadence = "bi-weekly"
	CadenceMonthly  Cadence = "monthly"
)

// IsValid reports whether c is a known cadence.
func (c Cadence) IsValid() bool {
	switch c {
	case CadenceWeekly, CadenceBiWeekly, CadenceMonthly:
		return true
	default:
		return false
	}
}

// ApprovalTier controls how strictly an issue must be reviewed.
type ApprovalTier string

const (
	Tier1 ApprovalTier = "tier1" // marketing/branding review
	Tier2 ApprovalTier = "tier2" // branding/CISO review, more restrictive
)

// IsValid reports whether a is a known approval tier.
func (a ApprovalTier) IsValid() bool {
	return a == Tier1 || a == Tier2
}

// RiskLevel is the configuration-level risk assessment for generated content.
type RiskLevel string

const (
	RiskStandard     RiskLevel = "standard"
	RiskHigh         RiskLevel = "high"
	RiskExperimental RiskLevel = "experimental"
)

// IsValid reports whether r is a known risk level.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskStandard, RiskHigh, RiskExperimental:
		return true
	default:
		return false
	}
}

// NewsletterConfiguration is a named policy describing cadence, audience,
// and AI/style parameters for generating issues. Identity is immutable;
// fields mutate via partial patch. The workflow engine never deletes one.
type NewsletterConfiguration struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	SegmentID   uuid.UUID `json:"segment_id" db:"segment_id"`

	Cadence       Cadence `json:"cadence" db:"cadence"`
	SendDayOfWeek int     `json:"send_day_of_week" db:"send_day_of_week"` // 0=Sunday
	SendTimeUTC   string  `json:"send_time_utc" db:"send_time_utc"`       // "14:00"
	Timezone      string  `json:"timezone" db:"timezone"`
	MaxBlocks     int     `json:"max_blocks" db:"max_blocks"`

	ApprovalTier ApprovalTier `json:"approval_tier" db:"approval_tier"`
	RiskLevel    RiskLevel    `json:"risk_level" db:"risk_level"`

	AIProvider    string `json:"ai_provider" db:"ai_provider"`
	AIModel       string `json:"ai_model" db:"ai_model"`
	PromptVersion int    `json:"prompt_version" db:"prompt_version"`

	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks the structural invariants of a configuration.
func (c *NewsletterConfiguration) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if c.SegmentID == uuid.Nil {
		return &ValidationError{Field: "segment_id", Reason: "segment_id is required"}
	}
	if !c.Cadence.IsValid() {
		return &ValidationError{Field: "cadence", Reason: "unknown cadence " + string(c.Cadence)}
	}
	if !c.ApprovalTier.IsValid() {
		return &ValidationError{Field: "approval_tier", Reason: "unknown approval tier " + string(c.ApprovalTier)}
	}
	if !c.RiskLevel.IsValid() {
		return &ValidationError{Field: "risk_level", Reason: "unknown risk level " + string(c.RiskLevel)}
	}
	if c.SendDayOfWeek < 0 || c.SendDayOfWeek > 6 {
		return &ValidationError{Field: "send_day_of_week", Reason: "must be 0-6"}
	}
	if c.MaxBlocks < 1 {
		return &ValidationError{Field: "max_blocks", Reason: "must be at least 1"}
	}
	return nil
}
