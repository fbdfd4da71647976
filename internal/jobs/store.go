// Package jobs tracks generation job handles.
//
// A job is the opaque handle returned by the generation coordinator; no
// further state is modeled in this core. Handles live in Redis with a TTL
// so the UI can resolve them while the external content generation runs.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a job handle stays resolvable.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "newsletter:generation_job:"

// Store keeps generation job handles in Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a Redis-backed job store with the default TTL.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: DefaultTTL}
}

// SetTTL overrides the handle TTL. Test hook.
func (s *Store) SetTTL(ttl time.Duration) { s.ttl = ttl }

// Put stores a job handle.
func (s *Store) Put(ctx context.Context, job domain.GenerationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+job.ID.String(), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

// Get resolves a job handle. Returns *domain.NotFoundError once the handle
// has expired or never existed.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	payload, err := s.rdb.Get(ctx, keyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, &domain.NotFoundError{Resource: "generation job", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch job %s: %w", id, err)
	}
	var job domain.GenerationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// MemoryStore keeps job handles in process memory. Dev-mode fallback when
// no Redis is configured; handles never expire.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.GenerationJob
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]domain.GenerationJob)}
}

// Put stores a job handle.
func (s *MemoryStore) Put(_ context.Context, job domain.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// Get resolves a job handle.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "generation job", ID: id.String()}
	}
	return &job, nil
}
