package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	deviceserrors "labbook/internal/devices/errors"
	"labbook/pkg/config"
	mongotx "labbook/pkg/db/mongo"
	"labbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Devices"
)

type mongoDeviceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type DeviceRepository interface {
	Create(ctx context.Context, device *model.Device) error
	FindByID(ctx context.Context, id string) (*model.Device, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Device, error)
	Update(ctx context.Context, id string, device *model.Device) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

func NewMongoDeviceRepository(cfg *config.Config) DeviceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDeviceRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoDeviceRepository) Create(ctx context.Context, device *model.Device) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	device.ID = ""
	device.CreatedAt = now
	device.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, device)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", deviceserrors.ErrDuplicate, device.DeviceID)
		}
		return fmt.Errorf("failed to create device: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		device.ID = oid.Hex()
	}
	return nil
}

func (r *mongoDeviceRepository) FindByID(ctx context.Context, id string) (*model.Device, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", deviceserrors.ErrInvalidID, id)
	}

	var device model.Device
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&device)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", deviceserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find device: %w", err)
	}
	return &device, nil
}

func (r *mongoDeviceRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Device, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "lab", Value: 1}, {Key: "device_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer cursor.Close(ctx)

	devices := make([]*model.Device, 0)
	if err = cursor.All(ctx, &devices); err != nil {
		return nil, fmt.Errorf("failed to decode devices: %w", err)
	}
	return devices, nil
}

func (r *mongoDeviceRepository) Update(ctx context.Context, id string, device *model.Device) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", deviceserrors.ErrInvalidID, id)
	}

	device.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"device_id":  device.DeviceID,
			"lab":        device.Lab,
			"ip_address": device.IPAddress,
			"port":       device.Port,
			"updated_at": device.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", deviceserrors.ErrDuplicate, device.DeviceID)
		}
		return fmt.Errorf("failed to update device: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", deviceserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoDeviceRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", deviceserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", deviceserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoDeviceRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}
