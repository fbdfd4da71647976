// Package distlock provides cross-host mutual exclusion for operations
// that must not run twice at once, such as generating an issue for a
// configuration. Redis is the primary backend with PostgreSQL advisory
// locks as the fallback.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a single-use, non-blocking distributed lock. A Lock instance
// must not be shared across goroutines.
type Lock interface {
	// Acquire reports whether the lock was taken.
	Acquire(ctx context.Context) (bool, error)
	// Release frees the lock if this instance still owns it.
	Release(ctx context.Context) error
}

// New returns a lock for the given key on the best available backend:
// Redis when a client is provided, otherwise a PG advisory lock.
func New(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) Lock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// PGAdvisoryLock holds a session-scoped pg_advisory_lock. The lock falls
// away with the connection, so a crashed holder cannot wedge it.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewPGAdvisoryLock derives a stable 64-bit lock id from the key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// Acquire tries the lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release frees the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
