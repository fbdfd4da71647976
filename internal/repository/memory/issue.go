package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/issue"
)

// IssueRepo implements issue.Repository in memory.
type IssueRepo struct {
	mu     sync.RWMutex
	issues map[uuid.UUID]*domain.NewsletterIssue
	order  []uuid.UUID // creation order, the default list ordering
}

// NewIssueRepo creates an empty in-memory issue repository.
func NewIssueRepo() *IssueRepo {
	return &IssueRepo{issues: make(map[uuid.UUID]*domain.NewsletterIssue)}
}

func cloneIssue(n *domain.NewsletterIssue) *domain.NewsletterIssue {
	cp := *n
	cp.SubjectLines = append([]string(nil), n.SubjectLines...)
	cp.SelectedSubjectLine = cloneStr(n.SelectedSubjectLine)
	cp.ApprovedBy = cloneUUID(n.ApprovedBy)
	cp.ApprovedAt = cloneTime(n.ApprovedAt)
	cp.RejectionReason = cloneStr(n.RejectionReason)
	cp.ScheduledFor = cloneTime(n.ScheduledFor)
	cp.SentAt = cloneTime(n.SentAt)
	cp.CreatedBy = cloneUUID(n.CreatedBy)
	if n.Blocks != nil {
		cp.Blocks = make([]domain.NewsletterBlock, len(n.Blocks))
		for i := range n.Blocks {
			cp.Blocks[i] = cloneBlock(&n.Blocks[i])
		}
	}
	return &cp
}

func cloneBlock(b *domain.NewsletterBlock) domain.NewsletterBlock {
	cp := *b
	cp.Title = cloneStr(b.Title)
	cp.Subtitle = cloneStr(b.Subtitle)
	cp.Content = cloneStr(b.Content)
	cp.CTALabel = cloneStr(b.CTALabel)
	cp.CTAURL = cloneStr(b.CTAURL)
	cp.ContentItemIDs = append([]uuid.UUID(nil), b.ContentItemIDs...)
	cp.TopicTags = append([]string(nil), b.TopicTags...)
	return cp
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(u *uuid.UUID) *uuid.UUID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

// Get returns a copy of the issue including blocks.
func (r *IssueRepo) Get(_ context.Context, id uuid.UUID) (*domain.NewsletterIssue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.issues[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	return cloneIssue(n), nil
}

// List returns issues matching the filter in creation order.
func (r *IssueRepo) List(_ context.Context, f issue.ListFilter) ([]domain.NewsletterIssue, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.NewsletterIssue
	for _, id := range r.order {
		n, ok := r.issues[id]
		if !ok {
			continue
		}
		if f.ConfigurationID != nil && n.ConfigurationID != *f.ConfigurationID {
			continue
		}
		if f.Status != nil && n.Status != *f.Status {
			continue
		}
		if f.SegmentID != nil && n.SegmentID != *f.SegmentID {
			continue
		}
		matched = append(matched, n)
	}

	total := len(matched)
	if f.Offset >= total {
		return []domain.NewsletterIssue{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}

	out := make([]domain.NewsletterIssue, 0, end-f.Offset)
	for _, n := range matched[f.Offset:end] {
		out = append(out, *cloneIssue(n))
	}
	return out, total, nil
}

// Create inserts a new issue.
func (r *IssueRepo) Create(_ context.Context, n *domain.NewsletterIssue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		return &domain.ValidationError{Field: "id", Reason: "id is required"}
	}
	r.issues[n.ID] = cloneIssue(n)
	r.order = append(r.order, n.ID)
	return nil
}

// Update applies a field patch while the issue is draft or pending_approval.
func (r *IssueRepo) Update(_ context.Context, id uuid.UUID, patch issue.UpdateFields) (*domain.NewsletterIssue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.issues[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if !issue.StatusAllows(n.Status, issue.UpdatableStatuses) {
		return nil, &domain.InvalidStateError{Op: issue.OpUpdate, Current: n.Status, Legal: issue.UpdatableStatuses}
	}

	if patch.SubjectLines != nil {
		n.SubjectLines = append([]string(nil), (*patch.SubjectLines)...)
	}
	if patch.SelectedSubjectLine != nil {
		n.SelectedSubjectLine = cloneStr(patch.SelectedSubjectLine)
	}
	if patch.PreviewText != nil {
		n.PreviewText = *patch.PreviewText
	}
	if patch.IssueDate != nil {
		n.IssueDate = *patch.IssueDate
	}
	if patch.ScheduledFor != nil {
		n.ScheduledFor = cloneTime(patch.ScheduledFor)
	}
	if patch.Blocks != nil {
		blocks := make([]domain.NewsletterBlock, len(*patch.Blocks))
		now := time.Now().UTC()
		for i := range *patch.Blocks {
			b := cloneBlock(&(*patch.Blocks)[i])
			if b.ID == uuid.Nil {
				b.ID = uuid.New()
			}
			b.IssueID = id
			if b.CreatedAt.IsZero() {
				b.CreatedAt = now
			}
			b.UpdatedAt = now
			blocks[i] = b
		}
		n.Blocks = blocks
	}
	n.Version++
	n.UpdatedAt = time.Now().UTC()
	return cloneIssue(n), nil
}

// Delete removes a draft issue and its blocks.
func (r *IssueRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.issues[id]
	if !ok {
		return &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if !issue.StatusAllows(n.Status, issue.DeletableStatuses) {
		return &domain.InvalidStateError{Op: issue.OpDelete, Current: n.Status, Legal: issue.DeletableStatuses}
	}
	delete(r.issues, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Transition atomically applies a status change plus its field writes.
func (r *IssueRepo) Transition(_ context.Context, id uuid.UUID, t issue.Transition) (*domain.NewsletterIssue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.issues[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if !issue.StatusAllows(n.Status, t.From) {
		return nil, &domain.InvalidStateError{Op: t.Op, Current: n.Status, Legal: t.From}
	}

	n.Status = t.To
	set := t.Set
	if set.ApprovedBy != nil {
		n.ApprovedBy = cloneUUID(set.ApprovedBy)
	}
	if set.ApprovedAt != nil {
		n.ApprovedAt = cloneTime(set.ApprovedAt)
	}
	if set.ClearApproval {
		n.ApprovedBy = nil
		n.ApprovedAt = nil
	}
	if set.RejectionReason != nil {
		n.RejectionReason = cloneStr(set.RejectionReason)
	}
	if set.ClearRejection {
		n.RejectionReason = nil
	}
	if set.ScheduledFor != nil {
		n.ScheduledFor = cloneTime(set.ScheduledFor)
	}
	if set.SentAt != nil {
		n.SentAt = cloneTime(set.SentAt)
	}
	if set.Metrics != nil {
		n.Metrics = *set.Metrics
	}
	n.Version++
	n.UpdatedAt = time.Now().UTC()
	return cloneIssue(n), nil
}

// NextIssueNumber returns 1 + the highest number for the configuration.
func (r *IssueRepo) NextIssueNumber(_ context.Context, configurationID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, n := range r.issues {
		if n.ConfigurationID == configurationID && n.IssueNumber > max {
			max = n.IssueNumber
		}
	}
	return max + 1, nil
}
