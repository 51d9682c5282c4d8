package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// ErrLocked means another holder owns the lock
var ErrLocked = errors.New("lock is held by another process")

// RunLock serializes long-running jobs across processes with a Redis lock.
// Without Redis every Obtain succeeds and callers rely on database constraints.
type RunLock struct{}

func NewRunLock() *RunLock {
	return &RunLock{}
}

// Obtain takes the lock for ttl and returns its release function
func (RunLock) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}

	lock, err := locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}

// GenerationLockKey names the lock for one society's billing period
func GenerationLockKey(societyID int64, year, month int) string {
	return fmt.Sprintf("billing:generate:%d:%d-%02d", societyID, year, month)
}
