package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
)

// ConfigurationRepo implements configuration.Repository in memory.
type ConfigurationRepo struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]*domain.NewsletterConfiguration
	order   []uuid.UUID
}

// NewConfigurationRepo creates an empty in-memory configuration repository.
func NewConfigurationRepo() *ConfigurationRepo {
	return &ConfigurationRepo{configs: make(map[uuid.UUID]*domain.NewsletterConfiguration)}
}

func cloneConfiguration(c *domain.NewsletterConfiguration) *domain.NewsletterConfiguration {
	cp := *c
	cp.Description = cloneStr(c.Description)
	cp.CreatedBy = cloneUUID(c.CreatedBy)
	return &cp
}

// Get returns a copy of the configuration.
func (r *ConfigurationRepo) Get(_ context.Context, id uuid.UUID) (*domain.NewsletterConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "newsletter configuration", ID: id.String()}
	}
	return cloneConfiguration(c), nil
}

// List returns configurations matching the filter in creation order.
func (r *ConfigurationRepo) List(_ context.Context, f configuration.ListFilter) ([]domain.NewsletterConfiguration, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.NewsletterConfiguration
	for _, id := range r.order {
		c, ok := r.configs[id]
		if !ok {
			continue
		}
		if f.SegmentID != nil && c.SegmentID != *f.SegmentID {
			continue
		}
		if f.IsActive != nil && c.IsActive != *f.IsActive {
			continue
		}
		matched = append(matched, c)
	}

	total := len(matched)
	if f.Offset >= total {
		return []domain.NewsletterConfiguration{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}

	out := make([]domain.NewsletterConfiguration, 0, end-f.Offset)
	for _, c := range matched[f.Offset:end] {
		out = append(out, *cloneConfiguration(c))
	}
	return out, total, nil
}

// Create inserts a new configuration.
func (r *ConfigurationRepo) Create(_ context.Context, c *domain.NewsletterConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		return &domain.ValidationError{Field: "id", Reason: "id is required"}
	}
	r.configs[c.ID] = cloneConfiguration(c)
	r.order = append(r.order, c.ID)
	return nil
}

// Update applies a field patch and refreshes updated_at.
func (r *ConfigurationRepo) Update(_ context.Context, id uuid.UUID, patch configuration.UpdateFields) (*domain.NewsletterConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.configs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "newsletter configuration", ID: id.String()}
	}

	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = cloneStr(patch.Description)
	}
	if patch.Cadence != nil {
		c.Cadence = *patch.Cadence
	}
	if patch.SendDayOfWeek != nil {
		c.SendDayOfWeek = *patch.SendDayOfWeek
	}
	if patch.SendTimeUTC != nil {
		c.SendTimeUTC = *patch.SendTimeUTC
	}
	if patch.Timezone != nil {
		c.Timezone = *patch.Timezone
	}
	if patch.MaxBlocks != nil {
		c.MaxBlocks = *patch.MaxBlocks
	}
	if patch.ApprovalTier != nil {
		c.ApprovalTier = *patch.ApprovalTier
	}
	if patch.RiskLevel != nil {
		c.RiskLevel = *patch.RiskLevel
	}
	if patch.AIProvider != nil {
		c.AIProvider = *patch.AIProvider
	}
	if patch.AIModel != nil {
		c.AIModel = *patch.AIModel
	}
	if patch.PromptVersion != nil {
		c.PromptVersion = *patch.PromptVersion
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	c.UpdatedAt = time.Now().UTC()
	return cloneConfiguration(c), nil
}
