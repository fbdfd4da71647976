package issue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/repository/memory"
	"github.com/ignite/newsletter-engine/internal/service/issue"
)

func newDraft(t *testing.T, repo *memory.IssueRepo) *domain.NewsletterIssue {
	t.Helper()
	now := time.Now().UTC()
	n := &domain.NewsletterIssue{
		ID:              uuid.New(),
		ConfigurationID: uuid.New(),
		SegmentID:       uuid.New(),
		IssueNumber:     1,
		IssueDate:       now,
		SubjectLines:    []string{"Subject A", "Subject B"},
		Status:          domain.IssueDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return n
}

// advance walks an issue to the target status through the real transitions.
func advance(t *testing.T, svc *issue.Service, id uuid.UUID, target domain.IssueStatus) {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		to  domain.IssueStatus
		run func() error
	}{
		{domain.IssuePendingApproval, func() error { _, err := svc.SubmitForApproval(ctx, id); return err }},
		{domain.IssueApproved, func() error { _, err := svc.Approve(ctx, id, uuid.New()); return err }},
		{domain.IssueScheduled, func() error {
			at := time.Now().UTC().Add(24 * time.Hour)
			_, err := svc.Schedule(ctx, id, &at)
			return err
		}},
		{domain.IssueSent, func() error { _, err := svc.MarkSent(ctx, id, domain.SendMetrics{}); return err }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("advance to %s: %v", step.to, err)
		}
		if step.to == target {
			return
		}
	}
	t.Fatalf("unreachable target status %s", target)
}

func TestUpdateDraft(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	n := newDraft(t, repo)

	preview := "fresh preview text"
	got, err := svc.Update(context.Background(), n.ID, issue.UpdateFields{PreviewText: &preview})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.PreviewText != preview {
		t.Fatalf("expected preview %q, got %q", preview, got.PreviewText)
	}
	if got.Version != n.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", n.Version+1, got.Version)
	}
}

func TestUpdateRejectsDuplicatePositions(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	n := newDraft(t, repo)

	blocks := []domain.NewsletterBlock{
		{BlockType: domain.BlockHero, Position: 0},
		{BlockType: domain.BlockNews, Position: 0},
	}
	_, err := svc.Update(context.Background(), n.ID, issue.UpdateFields{Blocks: &blocks})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAfterApprovalFails(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	n := newDraft(t, repo)
	advance(t, svc, n.ID, domain.IssueApproved)

	preview := "too late"
	_, err := svc.Update(context.Background(), n.ID, issue.UpdateFields{PreviewText: &preview})
	var serr *domain.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if serr.Current != domain.IssueApproved {
		t.Fatalf("expected current status approved, got %s", serr.Current)
	}
}

func TestDeleteDraftOnly(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	ctx := context.Background()

	n := newDraft(t, repo)
	if err := svc.Delete(ctx, n.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	_, err := svc.Get(ctx, n.ID)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	pending := newDraft(t, repo)
	advance(t, svc, pending.ID, domain.IssuePendingApproval)
	err = svc.Delete(ctx, pending.ID)
	var serr *domain.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	ctx := context.Background()
	n := newDraft(t, repo)

	fixed := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	if _, err := svc.SubmitForApproval(ctx, n.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	approver := uuid.New()
	got, err := svc.Approve(ctx, n.ID, approver)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != domain.IssueApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if got.ApprovedBy == nil || *got.ApprovedBy != approver {
		t.Fatalf("expected approved_by %s, got %v", approver, got.ApprovedBy)
	}
	if got.ApprovedAt == nil || !got.ApprovedAt.Equal(fixed) {
		t.Fatalf("expected approved_at %s, got %v", fixed, got.ApprovedAt)
	}

	sendAt := fixed.Add(48 * time.Hour)
	got, err = svc.Schedule(ctx, n.ID, &sendAt)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if got.ScheduledFor == nil || !got.ScheduledFor.Equal(sendAt) {
		t.Fatalf("expected scheduled_for %s, got %v", sendAt, got.ScheduledFor)
	}

	metrics := domain.SendMetrics{TotalRecipients: 1200, TotalDelivered: 1180, UniqueOpens: 400}
	got, err = svc.MarkSent(ctx, n.ID, metrics)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if got.Status != domain.IssueSent {
		t.Fatalf("expected sent, got %s", got.Status)
	}
	if got.SentAt == nil || !got.SentAt.Equal(fixed) {
		t.Fatalf("expected sent_at %s, got %v", fixed, got.SentAt)
	}
	if got.Metrics != metrics {
		t.Fatalf("expected metrics stored verbatim, got %+v", got.Metrics)
	}
}

func TestApproveRequiresPending(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	n := newDraft(t, repo)

	_, err := svc.Approve(context.Background(), n.ID, uuid.New())
	var serr *domain.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if serr.Current != domain.IssueDraft {
		t.Fatalf("expected current draft, got %s", serr.Current)
	}
}

func TestRejectReturnsToDraft(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	ctx := context.Background()
	n := newDraft(t, repo)
	advance(t, svc, n.ID, domain.IssuePendingApproval)

	got, err := svc.Reject(ctx, n.ID, "subject line too vague")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.IssueDraft {
		t.Fatalf("expected draft after reject, got %s", got.Status)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "subject line too vague" {
		t.Fatalf("expected rejection reason stored, got %v", got.RejectionReason)
	}
	if got.ApprovedBy != nil || got.ApprovedAt != nil {
		t.Fatal("expected approval fields cleared on reject")
	}

	// Resubmission clears the stale reason.
	got, err = svc.SubmitForApproval(ctx, n.ID)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if got.RejectionReason != nil {
		t.Fatalf("expected rejection reason cleared on resubmit, got %v", got.RejectionReason)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	n := newDraft(t, repo)
	advance(t, svc, n.ID, domain.IssuePendingApproval)

	_, err := svc.Reject(context.Background(), n.ID, "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScheduleRequiresTime(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	n := newDraft(t, repo)
	advance(t, svc, n.ID, domain.IssueApproved)

	_, err := svc.Schedule(context.Background(), n.ID, nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for nil time, got %v", err)
	}

	var zero time.Time
	_, err = svc.Schedule(context.Background(), n.ID, &zero)
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for zero time, got %v", err)
	}
}

func TestSentIsTerminal(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	ctx := context.Background()
	n := newDraft(t, repo)
	advance(t, svc, n.ID, domain.IssueSent)

	var serr *domain.InvalidStateError
	if _, err := svc.SubmitForApproval(ctx, n.ID); !errors.As(err, &serr) {
		t.Fatalf("expected invalid state on submit after sent, got %v", err)
	}
	if _, err := svc.MarkSent(ctx, n.ID, domain.SendMetrics{}); !errors.As(err, &serr) {
		t.Fatalf("expected invalid state on double mark-sent, got %v", err)
	}
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	repo := memory.NewIssueRepo()
	svc := issue.NewService(repo)
	ctx := context.Background()
	n := newDraft(t, repo)
	advance(t, svc, n.ID, domain.IssuePendingApproval)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, n.ID, uuid.New())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var serr *domain.InvalidStateError
		if !errors.As(err, &serr) {
			t.Fatalf("loser got unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 winning approve, got %d", wins)
	}

	got, err := svc.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.IssueApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := issue.NewService(memory.NewIssueRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}
