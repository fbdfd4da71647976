package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/repository/memory"
	"github.com/ignite/newsletter-engine/internal/service/issue"
)

func seedIssue(t *testing.T, repo *memory.IssueRepo, configID, segmentID uuid.UUID, num int, status domain.IssueStatus) *domain.NewsletterIssue {
	t.Helper()
	now := time.Now().UTC()
	n := &domain.NewsletterIssue{
		ID:              uuid.New(),
		ConfigurationID: configID,
		SegmentID:       segmentID,
		IssueNumber:     num,
		IssueDate:       now,
		SubjectLines:    []string{"s"},
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	return n
}

func TestListFiltersAreConjunctive(t *testing.T) {
	repo := memory.NewIssueRepo()
	ctx := context.Background()
	cfgA, cfgB := uuid.New(), uuid.New()
	seg := uuid.New()

	seedIssue(t, repo, cfgA, seg, 1, domain.IssueDraft)
	seedIssue(t, repo, cfgA, seg, 2, domain.IssueSent)
	seedIssue(t, repo, cfgB, seg, 1, domain.IssueDraft)

	status := domain.IssueDraft
	got, total, err := repo.List(ctx, issue.ListFilter{ConfigurationID: &cfgA, Status: &status, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Fatalf("expected 1 match, got %d (total %d)", len(got), total)
	}
	if got[0].ConfigurationID != cfgA || got[0].Status != domain.IssueDraft {
		t.Fatalf("wrong issue matched: %+v", got[0])
	}
}

func TestListPagination(t *testing.T) {
	repo := memory.NewIssueRepo()
	ctx := context.Background()
	cfg, seg := uuid.New(), uuid.New()
	for i := 1; i <= 5; i++ {
		seedIssue(t, repo, cfg, seg, i, domain.IssueDraft)
	}

	got, total, err := repo.List(ctx, issue.ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(got) != 2 {
		t.Fatalf("expected page of 2, got %d", len(got))
	}
	// Creation order is the list order.
	if got[0].IssueNumber != 3 || got[1].IssueNumber != 4 {
		t.Fatalf("expected issues 3,4 on page, got %d,%d", got[0].IssueNumber, got[1].IssueNumber)
	}
}

func TestListOffsetPastEnd(t *testing.T) {
	repo := memory.NewIssueRepo()
	cfg, seg := uuid.New(), uuid.New()
	seedIssue(t, repo, cfg, seg, 1, domain.IssueDraft)

	got, total, err := repo.List(context.Background(), issue.ListFilter{Limit: 10, Offset: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %d items", len(got))
	}
}

func TestGetReturnsCopy(t *testing.T) {
	repo := memory.NewIssueRepo()
	ctx := context.Background()
	cfg, seg := uuid.New(), uuid.New()
	n := seedIssue(t, repo, cfg, seg, 1, domain.IssueDraft)

	first, err := repo.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.SubjectLines[0] = "mutated"
	first.Status = domain.IssueSent

	second, err := repo.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.SubjectLines[0] != "s" || second.Status != domain.IssueDraft {
		t.Fatal("mutating a returned issue leaked into the store")
	}
}

func TestUpdateReplacesBlocksAsUnit(t *testing.T) {
	repo := memory.NewIssueRepo()
	ctx := context.Background()
	cfg, seg := uuid.New(), uuid.New()
	n := seedIssue(t, repo, cfg, seg, 1, domain.IssueDraft)

	title := "Top story"
	blocks := []domain.NewsletterBlock{
		{BlockType: domain.BlockHero, Position: 0, Title: &title},
		{BlockType: domain.BlockNews, Position: 1},
	}
	got, err := repo.Update(ctx, n.ID, issue.UpdateFields{Blocks: &blocks})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(got.Blocks))
	}
	for _, b := range got.Blocks {
		if b.ID == uuid.Nil {
			t.Fatal("expected block ids assigned")
		}
		if b.IssueID != n.ID {
			t.Fatalf("expected block issue_id %s, got %s", n.ID, b.IssueID)
		}
	}

	replacement := []domain.NewsletterBlock{{BlockType: domain.BlockSpotlight, Position: 0}}
	got, err = repo.Update(ctx, n.ID, issue.UpdateFields{Blocks: &replacement})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].BlockType != domain.BlockSpotlight {
		t.Fatalf("expected blocks replaced as a unit, got %+v", got.Blocks)
	}
}

func TestTransitionVersionBump(t *testing.T) {
	repo := memory.NewIssueRepo()
	ctx := context.Background()
	cfg, seg := uuid.New(), uuid.New()
	n := seedIssue(t, repo, cfg, seg, 1, domain.IssueDraft)

	got, err := repo.Transition(ctx, n.ID, issue.Transition{
		Op:   issue.OpSubmitForApproval,
		From: []domain.IssueStatus{domain.IssueDraft},
		To:   domain.IssuePendingApproval,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Version != n.Version+1 {
		t.Fatalf("expected version %d, got %d", n.Version+1, got.Version)
	}
}

func TestNextIssueNumberPerConfiguration(t *testing.T) {
	repo := memory.NewIssueRepo()
	ctx := context.Background()
	cfgA, cfgB := uuid.New(), uuid.New()
	seg := uuid.New()

	num, err := repo.NextIssueNumber(ctx, cfgA)
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
	if num != 1 {
		t.Fatalf("expected 1 for empty configuration, got %d", num)
	}

	seedIssue(t, repo, cfgA, seg, 1, domain.IssueDraft)
	seedIssue(t, repo, cfgA, seg, 7, domain.IssueSent)
	seedIssue(t, repo, cfgB, seg, 3, domain.IssueDraft)

	num, err = repo.NextIssueNumber(ctx, cfgA)
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
	if num != 8 {
		t.Fatalf("expected 8, got %d", num)
	}
}
