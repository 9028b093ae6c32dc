package lock

import (
	"context"
	"errors"
	"time"

	bookingserrors "labbook/internal/bookings/errors"
	"labbook/internal/bookings/repository"
	"labbook/pkg/logger"
	"labbook/pkg/model"

	"github.com/google/uuid"
)

const (
	lockIDPrefix   = "device_lock_"
	initialBackoff = 25 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
	releaseTimeout = 5 * time.Second
)

// MongoLocker holds a device lock document across processes. The document
// expires after ttl so a crashed holder cannot block a device for good.
type MongoLocker struct {
	repo repository.DeviceLockRepository
	ttl  time.Duration
	log  *logger.Logger
	now  func() time.Time
}

func NewMongoLocker(repo repository.DeviceLockRepository, ttl time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{
		repo: repo,
		ttl:  ttl,
		log:  log,
		now:  time.Now,
	}
}

func LockID(deviceID string) string {
	return lockIDPrefix + deviceID
}

// Lock retries with exponential backoff until the lock is free or ctx is done.
func (l *MongoLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockID := LockID(key)
	owner := uuid.NewString()
	backoff := initialBackoff

	for {
		now := l.now().UTC()
		err := l.repo.Acquire(ctx, &model.DeviceLock{
			ID:        lockID,
			Owner:     owner,
			ExpiresAt: now.Add(l.ttl),
		})
		if err == nil {
			return l.unlockFunc(lockID, owner), nil
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			if ctx.Err() != nil {
				return nil, ErrTimeout
			}
			return nil, err
		}

		cleared, clearErr := l.repo.DeleteExpired(ctx, lockID, now)
		if clearErr != nil {
			l.log.Warn("Failed to clear expired device lock", "lock_id", lockID, "error", clearErr)
		}
		if cleared {
			l.log.Warn("Cleared expired device lock", "lock_id", lockID)
			continue
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrTimeout
		case <-timer.C:
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *MongoLocker) unlockFunc(lockID, owner string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := l.repo.Release(ctx, lockID, owner); err != nil {
			l.log.Error("Failed to release device lock", "lock_id", lockID, "error", err)
		}
	}
}
