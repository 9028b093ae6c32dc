package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "labbook/internal/bookings/errors"
	"labbook/pkg/config"
	mongotx "labbook/pkg/db/mongo"
	"labbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// DeviceLockRepository stores advisory locks. The unique _id makes a second
// Acquire for the same device fail until the first is released or expires.
type DeviceLockRepository interface {
	Acquire(ctx context.Context, lock *model.DeviceLock) error
	Release(ctx context.Context, lockID, owner string) error
	DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error)
}

type mongoDeviceLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewDeviceLockRepository(cfg *config.Config) DeviceLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDeviceLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoDeviceLockRepository) Acquire(ctx context.Context, lock *model.DeviceLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lock.CreatedAt = time.Now().UTC()
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire device lock: %w", err)
	}
	return nil
}

// Release only removes the lock while owner still holds it.
func (r *mongoDeviceLockRepository) Release(ctx context.Context, lockID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
		return fmt.Errorf("failed to release device lock: %w", err)
	}
	return nil
}

// DeleteExpired clears a lock whose holder is gone. The TTL monitor does the same
// but only runs about once a minute.
func (r *mongoDeviceLockRepository) DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lte": now}})
	if err != nil {
		return false, fmt.Errorf("failed to clear expired device lock: %w", err)
	}
	return result.DeletedCount > 0, nil
}
