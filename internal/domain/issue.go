package domain

import (
	"time"

	"github.com/google/uuid"
)

// IssueStatus enumerates the lifecycle states of a newsletter issue.
type IssueStatus string

const (
	IssueDraft           IssueStatus = "draft"
	IssuePendingApproval IssueStatus = "pending_approval"
	IssueApproved        IssueStatus = "approved"
	IssueScheduled       IssueStatus = "scheduled"
	IssueSent            IssueStatus = "sent"
)

// IsValid reports whether s is a known issue status.
func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueDraft, IssuePendingApproval, IssueApproved, IssueScheduled, IssueSent:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the issue is in a final state.
func (s IssueStatus) IsTerminal() bool {
	return s == IssueSent
}

// BlockType enumerates the kinds of content blocks an issue can contain.
type BlockType string

const (
	BlockHero      BlockType = "hero"
	BlockNews      BlockType = "news"
	BlockContent   BlockType = "content"
	BlockEvents    BlockType = "events"
	BlockSpotlight BlockType = "spotlight"
)

// IsValid reports whether b is a known block type.
func (b BlockType) IsValid() bool {
	switch b {
	case BlockHero, BlockNews, BlockContent, BlockEvents, BlockSpotlight:
		return true
	default:
		return false
	}
}

// SendMetrics is the snapshot of delivery counters recorded when an issue
// is marked sent. All fields are zero until then.
type SendMetrics struct {
	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	TotalSent       int `json:"total_sent" db:"total_sent"`
	TotalDelivered  int `json:"total_delivered" db:"total_delivered"`
	TotalOpened     int `json:"total_opened" db:"total_opened"`
	TotalClicked    int `json:"total_clicked" db:"total_clicked"`
	UniqueOpens     int `json:"unique_opens" db:"unique_opens"`
	UniqueClicks    int `json:"unique_clicks" db:"unique_clicks"`
}

// NewsletterIssue is one generated newsletter instance moving through the
// approval workflow. ConfigurationID and SegmentID are set at creation and
// never change.
type NewsletterIssue struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ConfigurationID uuid.UUID `json:"configuration_id" db:"configuration_id"`
	SegmentID       uuid.UUID `json:"segment_id" db:"segment_id"`

	IssueNumber int       `json:"issue_number" db:"issue_number"`
	IssueDate   time.Time `json:"issue_date" db:"issue_date"`

	SubjectLines        []string `json:"subject_lines" db:"subject_lines"`
	SelectedSubjectLine *string  `json:"selected_subject_line,omitempty" db:"selected_subject_line"`
	PreviewText         string   `json:"preview_text" db:"preview_text"`

	Status IssueStatus `json:"status" db:"status"`

	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	SentAt       *time.Time `json:"sent_at,omitempty" db:"sent_at"`

	Metrics SendMetrics `json:"metrics"`

	Blocks []NewsletterBlock `json:"blocks,omitempty"`

	Version   int        `json:"version" db:"version"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Subject returns the subject line to display: the selected one if set,
// otherwise the first candidate.
func (n *NewsletterIssue) Subject() string {
	if n.SelectedSubjectLine != nil && *n.SelectedSubjectLine != "" {
		return *n.SelectedSubjectLine
	}
	if len(n.SubjectLines) > 0 {
		return n.SubjectLines[0]
	}
	return ""
}

// NewsletterBlock is one ordered content unit within an issue. Blocks are
// owned exclusively by their issue and replaced as a unit on edit.
type NewsletterBlock struct {
	ID      uuid.UUID `json:"id" db:"id"`
	IssueID uuid.UUID `json:"issue_id" db:"issue_id"`

	BlockType BlockType `json:"block_type" db:"block_type"`
	Position  int       `json:"position" db:"position"`

	Title    *string `json:"title,omitempty" db:"title"`
	Subtitle *string `json:"subtitle,omitempty" db:"subtitle"`
	Content  *string `json:"content,omitempty" db:"content"`
	CTALabel *string `json:"cta_label,omitempty" db:"cta_label"`
	CTAURL   *string `json:"cta_url,omitempty" db:"cta_url"`

	ContentItemIDs []uuid.UUID `json:"content_item_ids,omitempty" db:"content_item_ids"`
	IsPromotional  bool        `json:"is_promotional" db:"is_promotional"`
	TopicTags      []string    `json:"topic_tags,omitempty" db:"topic_tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the structural invariants of a block.
func (b *NewsletterBlock) Validate() error {
	if !b.BlockType.IsValid() {
		return &ValidationError{Field: "block_type", Reason: "unknown block type " + string(b.BlockType)}
	}
	if b.Position < 0 {
		return &ValidationError{Field: "position", Reason: "position cannot be negative"}
	}
	return nil
}

// ValidateBlocks checks that block positions are unique within one issue.
// Contiguity is a UI concern; only uniqueness is required for render order.
func ValidateBlocks(blocks []NewsletterBlock) error {
	seen := make(map[int]bool, len(blocks))
	for i := range blocks {
		if err := blocks[i].Validate(); err != nil {
			return err
		}
		if seen[blocks[i].Position] {
			return &ValidationError{Field: "position", Reason: "duplicate block position"}
		}
		seen[blocks[i].Position] = true
	}
	return nil
}

// GenerationJob is the opaque handle returned when an issue is generated.
// It carries no further state in this core.
type GenerationJob struct {
	ID        uuid.UUID `json:"id"`
	IssueID   uuid.UUID `json:"issue_id"`
	CreatedAt time.Time `json:"created_at"`
}
