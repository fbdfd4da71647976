// Package postgres implements the repository contracts against PostgreSQL.
//
// Status transitions are single conditional UPDATE statements guarded on
// the legal source statuses, so two racing writers are serialized by the
// row lock and the loser sees zero rows updated.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/issue"
)

// IssueRepo implements issue.Repository against PostgreSQL.
type IssueRepo struct{ db *sql.DB }

// NewIssueRepo creates a Postgres-backed issue repository.
func NewIssueRepo(db *sql.DB) *IssueRepo { return &IssueRepo{db: db} }

const issueColumns = `id, configuration_id, segment_id, issue_number, issue_date,
	subject_lines, selected_subject_line, COALESCE(preview_text,''), status,
	approved_by, approved_at, rejection_reason, scheduled_for, sent_at,
	total_recipients, total_sent, total_delivered, total_opened, total_clicked,
	unique_opens, unique_clicks, version, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*domain.NewsletterIssue, error) {
	n := &domain.NewsletterIssue{}
	var subjectLines pq.StringArray
	err := row.Scan(
		&n.ID, &n.ConfigurationID, &n.SegmentID, &n.IssueNumber, &n.IssueDate,
		&subjectLines, &n.SelectedSubjectLine, &n.PreviewText, &n.Status,
		&n.ApprovedBy, &n.ApprovedAt, &n.RejectionReason, &n.ScheduledFor, &n.SentAt,
		&n.Metrics.TotalRecipients, &n.Metrics.TotalSent, &n.Metrics.TotalDelivered,
		&n.Metrics.TotalOpened, &n.Metrics.TotalClicked,
		&n.Metrics.UniqueOpens, &n.Metrics.UniqueClicks,
		&n.Version, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.SubjectLines = []string(subjectLines)
	return n, nil
}

// Get returns the issue including its blocks.
func (r *IssueRepo) Get(ctx context.Context, id uuid.UUID) (*domain.NewsletterIssue, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM newsletter_issues WHERE id = $1`, id)
	n, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}

	blocks, err := r.loadBlocks(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Blocks = blocks
	return n, nil
}

func (r *IssueRepo) loadBlocks(ctx context.Context, issueID uuid.UUID) ([]domain.NewsletterBlock, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, issue_id, block_type, position, title, subtitle, content,
		       cta_label, cta_url, content_item_ids, is_promotional, topic_tags,
		       created_at, updated_at
		FROM newsletter_blocks WHERE issue_id = $1 ORDER BY position`, issueID)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	defer rows.Close()

	var blocks []domain.NewsletterBlock
	for rows.Next() {
		var b domain.NewsletterBlock
		var itemIDs, tags pq.StringArray
		if err := rows.Scan(
			&b.ID, &b.IssueID, &b.BlockType, &b.Position, &b.Title, &b.Subtitle,
			&b.Content, &b.CTALabel, &b.CTAURL, &itemIDs, &b.IsPromotional, &tags,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.TopicTags = []string(tags)
		for _, raw := range itemIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			b.ContentItemIDs = append(b.ContentItemIDs, id)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// List returns issues matching the filter in creation order, without blocks.
func (r *IssueRepo) List(ctx context.Context, f issue.ListFilter) ([]domain.NewsletterIssue, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.ConfigurationID != nil {
		where = append(where, fmt.Sprintf("configuration_id = $%d", idx))
		args = append(args, *f.ConfigurationID)
		idx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(*f.Status))
		idx++
	}
	if f.SegmentID != nil {
		where = append(where, fmt.Sprintf("segment_id = $%d", idx))
		args = append(args, *f.SegmentID)
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM newsletter_issues WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT `+issueColumns+` FROM newsletter_issues WHERE `+cond+
		` ORDER BY created_at, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	out := []domain.NewsletterIssue{}
	for rows.Next() {
		n, err := scanIssue(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// Create inserts the issue and its blocks in one transaction.
func (r *IssueRepo) Create(ctx context.Context, n *domain.NewsletterIssue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO newsletter_issues (id, configuration_id, segment_id, issue_number,
			issue_date, subject_lines, selected_subject_line, preview_text, status,
			scheduled_for, version, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.ConfigurationID, n.SegmentID, n.IssueNumber, n.IssueDate,
		pq.Array(n.SubjectLines), n.SelectedSubjectLine, n.PreviewText, string(n.Status),
		n.ScheduledFor, n.Version, n.CreatedBy, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}

	if err := insertBlocks(ctx, tx, n.ID, n.Blocks); err != nil {
		return err
	}
	return tx.Commit()
}

func insertBlocks(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, blocks []domain.NewsletterBlock) error {
	for i := range blocks {
		b := &blocks[i]
		itemIDs := make(pq.StringArray, 0, len(b.ContentItemIDs))
		for _, id := range b.ContentItemIDs {
			itemIDs = append(itemIDs, id.String())
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO newsletter_blocks (id, issue_id, block_type, position, title,
				subtitle, content, cta_label, cta_url, content_item_ids,
				is_promotional, topic_tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			b.ID, issueID, string(b.BlockType), b.Position, b.Title, b.Subtitle,
			b.Content, b.CTALabel, b.CTAURL, itemIDs, b.IsPromotional,
			pq.Array(b.TopicTags), b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert block %d: %w", b.Position, err)
		}
	}
	return nil
}

// Update applies a field patch while the issue is draft or pending_approval.
// The status guard and the field writes commit as one transaction.
func (r *IssueRepo) Update(ctx context.Context, id uuid.UUID, patch issue.UpdateFields) (*domain.NewsletterIssue, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var status domain.IssueStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM newsletter_issues WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("lock issue: %w", err)
	}
	if !issue.StatusAllows(status, issue.UpdatableStatuses) {
		return nil, &domain.InvalidStateError{Op: issue.OpUpdate, Current: status, Legal: issue.UpdatableStatuses}
	}

	set := []string{"version = version + 1", "updated_at = NOW()"}
	args := []interface{}{}
	idx := 1
	add := func(col string, v interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}
	if patch.SubjectLines != nil {
		add("subject_lines", pq.Array(*patch.SubjectLines))
	}
	if patch.SelectedSubjectLine != nil {
		add("selected_subject_line", *patch.SelectedSubjectLine)
	}
	if patch.PreviewText != nil {
		add("preview_text", *patch.PreviewText)
	}
	if patch.IssueDate != nil {
		add("issue_date", *patch.IssueDate)
	}
	if patch.ScheduledFor != nil {
		add("scheduled_for", *patch.ScheduledFor)
	}

	args = append(args, id)
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE newsletter_issues SET %s WHERE id = $%d`, strings.Join(set, ", "), idx), args...)
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}

	// Blocks are owned by the issue and replaced as a unit.
	if patch.Blocks != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM newsletter_blocks WHERE issue_id = $1`, id); err != nil {
			return nil, fmt.Errorf("clear blocks: %w", err)
		}
		now := time.Now().UTC()
		blocks := *patch.Blocks
		for i := range blocks {
			if blocks[i].ID == uuid.Nil {
				blocks[i].ID = uuid.New()
			}
			blocks[i].IssueID = id
			if blocks[i].CreatedAt.IsZero() {
				blocks[i].CreatedAt = now
			}
			blocks[i].UpdatedAt = now
		}
		if err := insertBlocks(ctx, tx, id, blocks); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.Get(ctx, id)
}

// Delete removes a draft issue; blocks go with it.
func (r *IssueRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM newsletter_issues WHERE id = $1 AND status = ANY($2)`,
		id, statusArray(issue.DeletableStatuses))
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var status domain.IssueStatus
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM newsletter_issues WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	return &domain.InvalidStateError{Op: issue.OpDelete, Current: status, Legal: issue.DeletableStatuses}
}

// Transition applies a status change as one conditional UPDATE. Zero rows
// means the precondition failed: the follow-up read distinguishes a missing
// issue from an illegal current status.
func (r *IssueRepo) Transition(ctx context.Context, id uuid.UUID, t issue.Transition) (*domain.NewsletterIssue, error) {
	set := []string{"status = $1", "version = version + 1", "updated_at = NOW()"}
	args := []interface{}{string(t.To)}
	idx := 2
	add := func(col string, v interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}

	if t.Set.ApprovedBy != nil {
		add("approved_by", *t.Set.ApprovedBy)
	}
	if t.Set.ApprovedAt != nil {
		add("approved_at", *t.Set.ApprovedAt)
	}
	if t.Set.ClearApproval {
		set = append(set, "approved_by = NULL", "approved_at = NULL")
	}
	if t.Set.RejectionReason != nil {
		add("rejection_reason", *t.Set.RejectionReason)
	}
	if t.Set.ClearRejection {
		set = append(set, "rejection_reason = NULL")
	}
	if t.Set.ScheduledFor != nil {
		add("scheduled_for", *t.Set.ScheduledFor)
	}
	if t.Set.SentAt != nil {
		add("sent_at", *t.Set.SentAt)
	}
	if t.Set.Metrics != nil {
		m := t.Set.Metrics
		add("total_recipients", m.TotalRecipients)
		add("total_sent", m.TotalSent)
		add("total_delivered", m.TotalDelivered)
		add("total_opened", m.TotalOpened)
		add("total_clicked", m.TotalClicked)
		add("unique_opens", m.UniqueOpens)
		add("unique_clicks", m.UniqueClicks)
	}

	args = append(args, id, statusArray(t.From))
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE newsletter_issues SET %s WHERE id = $%d AND status = ANY($%d)`,
		strings.Join(set, ", "), idx, idx+1), args...)
	if err != nil {
		return nil, fmt.Errorf("%s issue: %w", t.Op, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return r.Get(ctx, id)
	}

	var status domain.IssueStatus
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM newsletter_issues WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "newsletter issue", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("%s issue: %w", t.Op, err)
	}
	return nil, &domain.InvalidStateError{Op: t.Op, Current: status, Legal: t.From}
}

// NextIssueNumber returns 1 + the highest number for the configuration.
func (r *IssueRepo) NextIssueNumber(ctx context.Context, configurationID uuid.UUID) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(issue_number), 0) + 1 FROM newsletter_issues WHERE configuration_id = $1`,
		configurationID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next issue number: %w", err)
	}
	return next, nil
}

func statusArray(statuses []domain.IssueStatus) pq.StringArray {
	out := make(pq.StringArray, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
