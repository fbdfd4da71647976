// Package generation implements the issue generation coordinator: given a
// configuration id it creates a fresh draft issue, copying the audience
// segment and deriving initial subject and preview text. The AI content
// call itself is an external collaborator invoked around, not inside, this
// coordinator; the returned job id is the handle that collaborator reports
// against.
package generation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/content"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/pkg/distlock"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
	"github.com/ignite/newsletter-engine/internal/service/issue"
)

// JobStore persists generation job handles.
type JobStore interface {
	Put(ctx context.Context, job domain.GenerationJob) error
	Get(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error)
}

// Result is what Generate hands back to the caller.
type Result struct {
	IssueID uuid.UUID `json:"issue_id"`
	JobID   uuid.UUID `json:"job_id"`
}

// Coordinator creates draft issues from configurations.
type Coordinator struct {
	issues  issue.Repository
	configs configuration.Repository
	jobs    JobStore
	source  content.Source                 // optional; nil means no block seeding
	lockFor func(key string) distlock.Lock // optional; nil means no cross-host guard
	now     func() time.Time
}

// NewCoordinator creates a generation coordinator.
func NewCoordinator(issues issue.Repository, configs configuration.Repository, jobs JobStore) *Coordinator {
	return &Coordinator{issues: issues, configs: configs, jobs: jobs, now: time.Now}
}

// SetContentSource enables block seeding from the content catalog feeds.
func (c *Coordinator) SetContentSource(src content.Source) { c.source = src }

// SetLockFactory serializes generation per configuration across hosts.
// Without it two concurrent Generate calls for the same configuration can
// both read the same NextIssueNumber, and the slower insert fails on the
// issue number uniqueness constraint instead of returning a clean conflict.
func (c *Coordinator) SetLockFactory(lockFor func(key string) distlock.Lock) {
	c.lockFor = lockFor
}

// SetClock overrides the time source. Test hook.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// ResolveJob looks up a previously issued job handle.
func (c *Coordinator) ResolveJob(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	return c.jobs.Get(ctx, id)
}

// Generate creates a new draft issue for the configuration. Each call
// produces an independent issue; no other issue is touched. scheduledFor
// and createdBy are optional.
func (c *Coordinator) Generate(ctx context.Context, configurationID uuid.UUID, scheduledFor *time.Time, createdBy *uuid.UUID) (*Result, error) {
	if configurationID == uuid.Nil {
		return nil, &domain.ValidationError{Field: "configuration_id", Reason: "configuration_id is required"}
	}

	cfg, err := c.configs.Get(ctx, configurationID)
	if err != nil {
		return nil, err
	}

	if c.lockFor != nil {
		lock := c.lockFor("generate:" + cfg.ID.String())
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire generation lock: %w", err)
		}
		if !ok {
			return nil, &domain.ConflictError{
				Resource: "configuration " + cfg.ID.String(),
				Reason:   "generation already in progress",
			}
		}
		defer lock.Release(ctx)
	}

	number, err := c.issues.NextIssueNumber(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("allocate issue number: %w", err)
	}

	now := c.now().UTC()
	n := &domain.NewsletterIssue{
		ID:              uuid.New(),
		ConfigurationID: cfg.ID,
		SegmentID:       cfg.SegmentID,
		IssueNumber:     number,
		IssueDate:       now,
		SubjectLines:    deriveSubjectLines(cfg, number),
		PreviewText:     derivePreviewText(cfg, number),
		Status:          domain.IssueDraft,
		ScheduledFor:    scheduledFor,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if c.source != nil {
		blocks, err := c.seedBlocks(ctx, cfg, n.ID, now)
		if err != nil {
			// Seeding is best-effort: the draft is still editable by hand.
			log.Printf("[generation.Coordinator] block seeding for config %s: %v", cfg.ID, err)
		} else {
			n.Blocks = blocks
		}
	}

	if err := c.issues.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	job := domain.GenerationJob{ID: uuid.New(), IssueID: n.ID, CreatedAt: now}
	if err := c.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("register generation job: %w", err)
	}

	log.Printf("[generation.Coordinator] issue %s (#%d) generated from config %s, job %s",
		n.ID, number, cfg.ID, job.ID)
	return &Result{IssueID: n.ID, JobID: job.ID}, nil
}

// seedBlocks maps the freshest catalog items into an initial block layout:
// one hero followed by news blocks, capped at the configuration's max.
func (c *Coordinator) seedBlocks(ctx context.Context, cfg *domain.NewsletterConfiguration, issueID uuid.UUID, now time.Time) ([]domain.NewsletterBlock, error) {
	items, err := c.source.LatestItems(ctx, cfg.MaxBlocks)
	if err != nil {
		return nil, err
	}

	blocks := make([]domain.NewsletterBlock, 0, len(items))
	for i, item := range items {
		blockType := domain.BlockNews
		if i == 0 {
			blockType = domain.BlockHero
		}
		title := item.Title
		summary := item.Summary
		label := "Read more"
		link := item.Link
		blocks = append(blocks, domain.NewsletterBlock{
			ID:             uuid.New(),
			IssueID:        issueID,
			BlockType:      blockType,
			Position:       i,
			Title:          &title,
			Content:        &summary,
			CTALabel:       &label,
			CTAURL:         &link,
			ContentItemIDs: []uuid.UUID{item.ID},
			TopicTags:      item.Categories,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return blocks, nil
}

// deriveSubjectLines builds deterministic subject candidates from the
// configuration. The external AI collaborator may later overwrite them via
// a normal issue update.
func deriveSubjectLines(cfg *domain.NewsletterConfiguration, number int) []string {
	return []string{
		fmt.Sprintf("%s: Issue #%d", cfg.Name, number),
		fmt.Sprintf("Issue #%d: this week in %s", number, cfg.Name),
	}
}

func derivePreviewText(cfg *domain.NewsletterConfiguration, number int) string {
	return fmt.Sprintf("The latest from %s, issue #%d.", cfg.Name, number)
}
