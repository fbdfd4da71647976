package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/jobs"
)

func newTestStore(t *testing.T) (*jobs.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return jobs.NewStore(rdb), mr
}

func TestPutAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := domain.GenerationJob{ID: uuid.New(), IssueID: uuid.New(), CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != job.ID || got.IssueID != job.IssueID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Fatalf("created_at mismatch: %s vs %s", got.CreatedAt, job.CreatedAt)
	}
}

func TestGetUnknown(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), uuid.New())
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	store.SetTTL(time.Minute)

	job := domain.GenerationJob{ID: uuid.New(), IssueID: uuid.New(), CreatedAt: time.Now().UTC()}
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, job.ID)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found after expiry, got %v", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := jobs.NewMemoryStore()
	ctx := context.Background()

	job := domain.GenerationJob{ID: uuid.New(), IssueID: uuid.New(), CreatedAt: time.Now().UTC()}
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IssueID != job.IssueID {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	_, err = store.Get(ctx, uuid.New())
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}
