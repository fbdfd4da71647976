package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
)

// ConfigurationRepo implements configuration.Repository against PostgreSQL.
type ConfigurationRepo struct{ db *sql.DB }

// NewConfigurationRepo creates a Postgres-backed configuration repository.
func NewConfigurationRepo(db *sql.DB) *ConfigurationRepo { return &ConfigurationRepo{db: db} }

const configColumns = `id, name, description, segment_id, cadence, send_day_of_week,
	send_time_utc, timezone, max_blocks, approval_tier, risk_level,
	ai_provider, ai_model, prompt_version, is_active, created_by, created_at, updated_at`

func scanConfiguration(row rowScanner) (*domain.NewsletterConfiguration, error) {
	c := &domain.NewsletterConfiguration{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.SegmentID, &c.Cadence, &c.SendDayOfWeek,
		&c.SendTimeUTC, &c.Timezone, &c.MaxBlocks, &c.ApprovalTier, &c.RiskLevel,
		&c.AIProvider, &c.AIModel, &c.PromptVersion, &c.IsActive, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a single configuration.
func (r *ConfigurationRepo) Get(ctx context.Context, id uuid.UUID) (*domain.NewsletterConfiguration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM newsletter_configurations WHERE id = $1`, id)
	c, err := scanConfiguration(row)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "newsletter configuration", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	return c, nil
}

// List returns configurations matching the filter in creation order.
func (r *ConfigurationRepo) List(ctx context.Context, f configuration.ListFilter) ([]domain.NewsletterConfiguration, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.SegmentID != nil {
		where = append(where, fmt.Sprintf("segment_id = $%d", idx))
		args = append(args, *f.SegmentID)
		idx++
	}
	if f.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *f.IsActive)
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM newsletter_configurations WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count configurations: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT `+configColumns+` FROM newsletter_configurations WHERE `+cond+
		` ORDER BY created_at, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list configurations: %w", err)
	}
	defer rows.Close()

	out := []domain.NewsletterConfiguration{}
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan configuration: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// Create inserts a new configuration.
func (r *ConfigurationRepo) Create(ctx context.Context, c *domain.NewsletterConfiguration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_configurations (id, name, description, segment_id,
			cadence, send_day_of_week, send_time_utc, timezone, max_blocks,
			approval_tier, risk_level, ai_provider, ai_model, prompt_version,
			is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID, c.Name, c.Description, c.SegmentID, string(c.Cadence), c.SendDayOfWeek,
		c.SendTimeUTC, c.Timezone, c.MaxBlocks, string(c.ApprovalTier), string(c.RiskLevel),
		c.AIProvider, c.AIModel, c.PromptVersion, c.IsActive, c.CreatedBy,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert configuration: %w", err)
	}
	return nil
}

// Update applies a field patch and refreshes updated_at.
func (r *ConfigurationRepo) Update(ctx context.Context, id uuid.UUID, patch configuration.UpdateFields) (*domain.NewsletterConfiguration, error) {
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
	if patch.Cadence != nil {
		add("cadence", string(*patch.Cadence))
	}
	if patch.SendDayOfWeek != nil {
		add("send_day_of_week", *patch.SendDayOfWeek)
	}
	if patch.SendTimeUTC != nil {
		add("send_time_utc", *patch.SendTimeUTC)
	}
	if patch.Timezone != nil {
		add("timezone", *patch.Timezone)
	}
	if patch.MaxBlocks != nil {
		add("max_blocks", *patch.MaxBlocks)
	}
	if patch.ApprovalTier != nil {
		add("approval_tier", string(*patch.ApprovalTier))
	}
	if patch.RiskLevel != nil {
		add("risk_level", string(*patch.RiskLevel))
	}
	if patch.AIProvider != nil {
		add("ai_provider", *patch.AIProvider)
	}
	if patch.AIModel != nil {
		add("ai_model", *patch.AIModel)
	}
	if patch.PromptVersion != nil {
		add("prompt_version", *patch.PromptVersion)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE newsletter_configurations SET %s WHERE id = $%d`,
		strings.Join(set, ", "), idx), args...)
	if err != nil {
		return nil, fmt.Errorf("update configuration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &domain.NotFoundError{Resource: "newsletter configuration", ID: id.String()}
	}
	return r.Get(ctx, id)
}
