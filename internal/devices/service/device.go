package service

import (
	"context"
	"errors"
	"sync"

	"labbook/internal/authz"
	deviceserrors "labbook/internal/devices/errors"
	"labbook/internal/devices/repository"
	"labbook/internal/devices/validator"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
	"labbook/pkg/sanitizer"
)

type DeviceService interface {
	Create(ctx context.Context, actor *authz.Actor, device *model.Device) error
	GetByID(ctx context.Context, id string) (*model.Device, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Device, int64, error)
	Update(ctx context.Context, actor *authz.Actor, id string, updates *model.DeviceUpdate) (*model.Device, error)
	Delete(ctx context.Context, actor *authz.Actor, id string) error
}

type deviceService struct {
	repo      repository.DeviceRepository
	validator *validator.DeviceValidator
	cfg       *config.Config
}

func NewDeviceService(
	repo repository.DeviceRepository,
	validator *validator.DeviceValidator,
	cfg *config.Config,
) DeviceService {
	return &deviceService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *deviceService) Create(ctx context.Context, actor *authz.Actor, device *model.Device) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	s.sanitize(device)
	if err := s.validator.Validate(device); err != nil {
		s.cfg.Log.Warn("Device validation failed",
			"device_id", device.DeviceID,
			"error", err,
		)
		return validationError(err)
	}

	if err := s.repo.Create(ctx, device); err != nil {
		if errors.Is(err, deviceserrors.ErrDuplicate) {
			return apperrors.Conflict("A device with this device_id already exists")
		}
		s.cfg.Log.Error("Failed to create device",
			"device_id", device.DeviceID,
			"error", err,
		)
		return apperrors.Internal("Failed to create device", err)
	}

	s.cfg.Log.Info("Device created successfully",
		"id", device.ID,
		"device_id", device.DeviceID,
		"lab", device.Lab,
		"actor_id", actor.ID,
	)
	return nil
}

func (s *deviceService) GetByID(ctx context.Context, id string) (*model.Device, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Device ID cannot be empty")
	}

	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError("get", id, err)
	}
	return device, nil
}

func (s *deviceService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Device, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var devices []*model.Device
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count devices", "error", err)
			errCount = apperrors.Internal("Failed to count devices", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		devices, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all devices",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve devices", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return devices, count, nil
}

func (s *deviceService) Update(ctx context.Context, actor *authz.Actor, id string, updates *model.DeviceUpdate) (*model.Device, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Device ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError("update", id, err)
	}

	merged := mergeDeviceUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Device validation failed",
			"id", id,
			"error", err,
		)
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, deviceserrors.ErrDuplicate) {
			return nil, apperrors.Conflict("A device with this device_id already exists")
		}
		return nil, s.translateRepoError("update", id, err)
	}

	s.cfg.Log.Info("Device updated successfully",
		"id", id,
		"device_id", merged.DeviceID,
		"actor_id", actor.ID,
	)
	return merged, nil
}

func (s *deviceService) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Device ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translateRepoError("delete", id, err)
	}

	s.cfg.Log.Info("Device deleted successfully", "id", id, "actor_id", actor.ID)
	return nil
}

func (s *deviceService) sanitize(device *model.Device) {
	device.DeviceID = sanitizer.NormalizeIdentifier(device.DeviceID)
	device.Lab = sanitizer.NormalizeLab(device.Lab)
	device.IPAddress = sanitizer.NormalizeHost(device.IPAddress)
}

func (s *deviceService) translateRepoError(op, id string, err error) error {
	switch {
	case errors.Is(err, deviceserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Device", id)
	case errors.Is(err, deviceserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid device ID format")
	}
	s.cfg.Log.Error("Device repository failure",
		"operation", op,
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to "+op+" device", err)
}

func mergeDeviceUpdates(existing *model.Device, updates *model.DeviceUpdate) *model.Device {
	merged := *existing

	if updates.DeviceID != "" {
		merged.DeviceID = updates.DeviceID
	}
	if updates.Lab != "" {
		merged.Lab = updates.Lab
	}
	if updates.IPAddress != "" {
		merged.IPAddress = updates.IPAddress
	}
	if updates.Port != nil {
		merged.Port = *updates.Port
	}

	return &merged
}

func requireAdmin(actor *authz.Actor) error {
	if actor == nil || actor.ID == "" {
		return apperrors.Unauthorized("Authentication required")
	}
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can manage devices")
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Device validation failed", map[string]any{"errors": verrs})
	}
	return apperrors.Validation("Device validation failed", map[string]any{"error": err.Error()})
}
