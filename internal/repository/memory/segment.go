package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/segment"
)

// SegmentRepo implements segment.Repository in memory.
type SegmentRepo struct {
	mu       sync.RWMutex
	segments map[uuid.UUID]*domain.Segment
	order    []uuid.UUID
}

// NewSegmentRepo creates an empty in-memory segment repository.
func NewSegmentRepo() *SegmentRepo {
	return &SegmentRepo{segments: make(map[uuid.UUID]*domain.Segment)}
}

func cloneSegment(s *domain.Segment) *domain.Segment {
	cp := *s
	cp.Description = cloneStr(s.Description)
	cp.Industries = append([]string(nil), s.Industries...)
	cp.Regions = append([]string(nil), s.Regions...)
	cp.ComplianceFrameworks = append([]string(nil), s.ComplianceFrameworks...)
	return &cp
}

// Get returns a copy of the segment.
func (r *SegmentRepo) Get(_ context.Context, id uuid.UUID) (*domain.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.segments[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "segment", ID: id.String()}
	}
	return cloneSegment(s), nil
}

// List returns segments matching the filter in creation order.
func (r *SegmentRepo) List(_ context.Context, f segment.ListFilter) ([]domain.Segment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Segment
	for _, id := range r.order {
		s, ok := r.segments[id]
		if !ok {
			continue
		}
		if f.IsActive != nil && s.IsActive != *f.IsActive {
			continue
		}
		matched = append(matched, s)
	}

	total := len(matched)
	if f.Offset >= total {
		return []domain.Segment{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}

	out := make([]domain.Segment, 0, end-f.Offset)
	for _, s := range matched[f.Offset:end] {
		out = append(out, *cloneSegment(s))
	}
	return out, total, nil
}

// Create inserts a new segment.
func (r *SegmentRepo) Create(_ context.Context, s *domain.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		return &domain.ValidationError{Field: "id", Reason: "id is required"}
	}
	r.segments[s.ID] = cloneSegment(s)
	r.order = append(r.order, s.ID)
	return nil
}

// Update applies a field patch and refreshes updated_at.
func (r *SegmentRepo) Update(_ context.Context, id uuid.UUID, patch segment.UpdateFields) (*domain.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.segments[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "segment", ID: id.String()}
	}

	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.Description != nil {
		s.Description = cloneStr(patch.Description)
	}
	if patch.Industries != nil {
		s.Industries = append([]string(nil), (*patch.Industries)...)
	}
	if patch.Regions != nil {
		s.Regions = append([]string(nil), (*patch.Regions)...)
	}
	if patch.ComplianceFrameworks != nil {
		s.ComplianceFrameworks = append([]string(nil), (*patch.ComplianceFrameworks)...)
	}
	if patch.MinEngagementScore != nil {
		s.MinEngagementScore = *patch.MinEngagementScore
	}
	if patch.ContactCount != nil {
		s.ContactCount = *patch.ContactCount
	}
	if patch.IsActive != nil {
		s.IsActive = *patch.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return cloneSegment(s), nil
}
