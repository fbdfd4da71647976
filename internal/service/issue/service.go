package issue

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
)

// Service implements the issue workflow engine. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe;
// racing transitions on one issue resolve in the repository, where the
// loser sees the already-updated status.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an issue service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Get returns a single issue with its blocks.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.NewsletterIssue, error) {
	return s.repo.Get(ctx, id)
}

// List returns issues matching the filter plus the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.NewsletterIssue, int, error) {
	return s.repo.List(ctx, f)
}

// Update applies a field-level patch to a draft or pending_approval issue.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*domain.NewsletterIssue, error) {
	if patch.Blocks != nil {
		if err := domain.ValidateBlocks(*patch.Blocks); err != nil {
			return nil, err
		}
	}
	return s.repo.Update(ctx, id, patch)
}

// Delete removes a draft issue and its blocks.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// SubmitForApproval moves a draft issue into review and clears any stale
// rejection reason from a previous round.
func (s *Service) SubmitForApproval(ctx context.Context, id uuid.UUID) (*domain.NewsletterIssue, error) {
	t := transitionFor(OpSubmitForApproval)
	t.Set.ClearRejection = true
	return s.repo.Transition(ctx, id, t)
}

// Approve records the reviewer's sign-off. Not idempotent: a second approve
// on the same issue fails because the status is no longer pending_approval.
func (s *Service) Approve(ctx context.Context, id, approvedBy uuid.UUID) (*domain.NewsletterIssue, error) {
	now := s.now().UTC()
	t := transitionFor(OpApprove)
	t.Set.ApprovedBy = &approvedBy
	t.Set.ApprovedAt = &now

	n, err := s.repo.Transition(ctx, id, t)
	if err != nil {
		return nil, err
	}
	log.Printf("[issue.Service] issue %s approved by %s", id, approvedBy)
	return n, nil
}

// Reject sends a pending issue back to draft with the reviewer's reason,
// clearing any prior approval fields.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.NewsletterIssue, error) {
	if reason == "" {
		return nil, &domain.ValidationError{Field: "reason", Reason: "rejection reason is required"}
	}
	t := transitionFor(OpReject)
	t.Set.RejectionReason = &reason
	t.Set.ClearApproval = true
	return s.repo.Transition(ctx, id, t)
}

// Schedule pins an approved issue to a send time.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, scheduledFor *time.Time) (*domain.NewsletterIssue, error) {
	if scheduledFor == nil || scheduledFor.IsZero() {
		return nil, &domain.ValidationError{Field: "scheduled_for", Reason: "scheduled_for is required"}
	}
	t := transitionFor(OpSchedule)
	t.Set.ScheduledFor = scheduledFor
	return s.repo.Transition(ctx, id, t)
}

// MarkSent completes a scheduled issue. It is the completion hook for the
// external scheduler/delivery subsystem: the metrics snapshot it supplies
// is stored verbatim and the issue reaches its terminal state.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID, metrics domain.SendMetrics) (*domain.NewsletterIssue, error) {
	now := s.now().UTC()
	t := transitionFor(OpMarkSent)
	t.Set.SentAt = &now
	t.Set.Metrics = &metrics

	n, err := s.repo.Transition(ctx, id, t)
	if err != nil {
		return nil, err
	}
	log.Printf("[issue.Service] issue %s marked sent: %d recipients, %d delivered",
		id, metrics.TotalRecipients, metrics.TotalDelivered)
	return n, nil
}
