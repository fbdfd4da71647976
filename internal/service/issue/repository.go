package issue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
)

// Repository defines the data access contract for newsletter issues.
// Implementations must be safe for concurrent use and must serialize all
// writes on a given issue id: of two racing Transition calls, exactly one
// observes the old status.
type Repository interface {
	// Get returns a single issue including its blocks.
	// Returns *domain.NotFoundError if it doesn't exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.NewsletterIssue, error)

	// List returns issues matching the filter plus the total match count,
	// ordered by creation time ascending.
	List(ctx context.Context, f ListFilter) ([]domain.NewsletterIssue, int, error)

	// Create inserts a new issue with its blocks. The caller (the generation
	// coordinator) allocates the id and sets the initial draft status.
	Create(ctx context.Context, n *domain.NewsletterIssue) error

	// Update applies a field-level patch. Only non-nil fields are written;
	// updated_at is always refreshed. Permitted only while the issue is in
	// draft or pending_approval; otherwise *domain.InvalidStateError.
	Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*domain.NewsletterIssue, error)

	// Delete removes an issue and its blocks. Permitted only from draft.
	Delete(ctx context.Context, id uuid.UUID) error

	// Transition atomically moves an issue between statuses: read current
	// state, validate it is one of t.From, write t.To plus t.Set as a unit.
	// Returns *domain.InvalidStateError when the current status is not in
	// t.From. Concurrent readers never observe a partial write.
	Transition(ctx context.Context, id uuid.UUID, t Transition) (*domain.NewsletterIssue, error)

	// NextIssueNumber returns 1 + the highest issue number generated for
	// the configuration so far.
	NextIssueNumber(ctx context.Context, configurationID uuid.UUID) (int, error)
}

// ListFilter controls filtering and pagination for issue lists.
// Filters are conjunctive; a nil filter matches all values for that field.
type ListFilter struct {
	ConfigurationID *uuid.UUID
	Status          *domain.IssueStatus
	SegmentID       *uuid.UUID
	Limit           int
	Offset          int
}

// UpdateFields holds the mutable fields for an issue patch. Nil fields are
// not applied. Status is deliberately absent: it only changes through
// Transition, so an illegal direct status write is impossible by
// construction rather than rejected at runtime.
type UpdateFields struct {
	SubjectLines        *[]string
	SelectedSubjectLine *string
	PreviewText         *string
	IssueDate           *time.Time
	ScheduledFor        *time.Time
	Blocks              *[]domain.NewsletterBlock
}

// Empty reports whether the patch carries no field writes.
func (u UpdateFields) Empty() bool {
	return u.SubjectLines == nil && u.SelectedSubjectLine == nil &&
		u.PreviewText == nil && u.IssueDate == nil &&
		u.ScheduledFor == nil && u.Blocks == nil
}

// ChangeSet is the field writes applied together with a status change.
// A nil pointer leaves the field untouched; the Clear flags null it out.
type ChangeSet struct {
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	ClearApproval   bool
	RejectionReason *string
	ClearRejection  bool
	ScheduledFor    *time.Time
	SentAt          *time.Time
	Metrics         *domain.SendMetrics
}

// Transition describes one atomic status change.
type Transition struct {
	Op   string
	From []domain.IssueStatus
	To   domain.IssueStatus
	Set  ChangeSet
}
