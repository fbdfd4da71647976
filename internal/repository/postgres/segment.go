package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/segment"
)

// SegmentRepo implements segment.Repository against PostgreSQL.
type SegmentRepo struct{ db *sql.DB }

// NewSegmentRepo creates a Postgres-backed segment repository.
func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{db: db} }

const segmentColumns = `id, name, description, industries, regions,
	compliance_frameworks, min_engagement_score, contact_count, is_active,
	created_at, updated_at`

func scanSegment(row rowScanner) (*domain.Segment, error) {
	s := &domain.Segment{}
	var industries, regions, frameworks pq.StringArray
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &industries, &regions, &frameworks,
		&s.MinEngagementScore, &s.ContactCount, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Industries = []string(industries)
	s.Regions = []string(regions)
	s.ComplianceFrameworks = []string(frameworks)
	return s, nil
}

// Get returns a single segment.
func (r *SegmentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Segment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = $1`, id)
	s, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "segment", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return s, nil
}

// List returns segments matching the filter in creation order.
func (r *SegmentRepo) List(ctx context.Context, f segment.ListFilter) ([]domain.Segment, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *f.IsActive)
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM segments WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count segments: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT `+segmentColumns+` FROM segments WHERE `+cond+
		` ORDER BY created_at, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	out := []domain.Segment{}
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// Create inserts a new segment.
func (r *SegmentRepo) Create(ctx context.Context, s *domain.Segment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO segments (id, name, description, industries, regions,
			compliance_frameworks, min_engagement_score, contact_count, is_active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.Name, s.Description, pq.Array(s.Industries), pq.Array(s.Regions),
		pq.Array(s.ComplianceFrameworks), s.MinEngagementScore, s.ContactCount,
		s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// Update applies a field patch and refreshes updated_at.
func (r *SegmentRepo) Update(ctx context.Context, id uuid.UUID, patch segment.UpdateFields) (*domain.Segment, error) {
	set := []string{"updated_at = NOW()"}
	args := []interface{}{}
	idx := 1
	add := func(col string, v interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Industries != nil {
		add("industries", pq.Array(*patch.Industries))
	}
	if patch.Regions != nil {
		add("regions", pq.Array(*patch.Regions))
	}
	if patch.ComplianceFrameworks != nil {
		add("compliance_frameworks", pq.Array(*patch.ComplianceFrameworks))
	}
	if patch.MinEngagementScore != nil {
		add("min_engagement_score", *patch.MinEngagementScore)
	}
	if patch.ContactCount != nil {
		add("contact_count", *patch.ContactCount)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE segments SET %s WHERE id = $%d`, strings.Join(set, ", "), idx), args...)
	if err != nil {
		return nil, fmt.Errorf("update segment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &domain.NotFoundError{Resource: "segment", ID: id.String()}
	}
	return r.Get(ctx, id)
}
