// Package lock provides the lease that keeps dispatch runs from overlapping.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

const RunKey = "dispatch:run"

// RunLock grants at most one holder at a time. Acquire does not wait: when the lease is held
// elsewhere it returns appErrors.ErrDispatchInProgress.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// RedisLock is a redsync lease shared by every process pointing at the same Redis.
type RedisLock struct {
	rs     *redsync.Redsync
	key    string
	expiry time.Duration
}

var _ RunLock = (*RedisLock)(nil)

// NewRedisLock builds a lease that expires after expiry if its holder dies without releasing.
func NewRedisLock(client redis.UniversalClient, key string, expiry time.Duration) *RedisLock {
	if key == "" {
		key = RunKey
	}
	return &RedisLock{rs: redsync.New(goredis.NewPool(client)), key: key, expiry: expiry}
}

func (l *RedisLock) Acquire(ctx context.Context) (func(), error) {
	mutex := l.rs.NewMutex(l.key, redsync.WithExpiry(l.expiry), redsync.WithTries(1))

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) ||
			strings.Contains(err.Error(), "lock already taken") {
			return nil, appErrors.ErrDispatchInProgress
		}
		return nil, fmt.Errorf("acquire run lease: %w", err)
	}

	return func() {
		// The lease may already have expired; nothing else to do then.
		_, _ = mutex.UnlockContext(context.Background())
	}, nil
}

// LocalLock serializes runs within one process.
type LocalLock struct {
	mu sync.Mutex
}

var _ RunLock = (*LocalLock)(nil)

func (l *LocalLock) Acquire(context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, appErrors.ErrDispatchInProgress
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
