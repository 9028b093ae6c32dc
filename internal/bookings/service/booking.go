package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labbook/internal/authz"
	"labbook/internal/bookings/conflict"
	bookingserrors "labbook/internal/bookings/errors"
	"labbook/internal/bookings/lock"
	"labbook/internal/bookings/repository"
	"labbook/internal/bookings/validator"
	"labbook/internal/events"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/metrics"
	"labbook/pkg/model"
	"labbook/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor *authz.Actor, id string) (*model.Booking, error)
	List(ctx context.Context, actor *authz.Actor) ([]*model.Booking, error)
	SetStatus(ctx context.Context, actor *authz.Actor, id string, status string) (*model.Booking, error)
	Delete(ctx context.Context, actor *authz.Actor, id string) error
}

// DeviceLookup resolves a device by id and returns AppErrors.
type DeviceLookup interface {
	GetByID(ctx context.Context, id string) (*model.Device, error)
}

// OwnerLookup resolves an identity by email and returns AppErrors.
type OwnerLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type Dependencies struct {
	Repo      repository.BookingRepository
	Locker    lock.Locker
	Devices   DeviceLookup
	Owners    OwnerLookup
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Validator *validator.BookingValidator
}

type bookingService struct {
	repo      repository.BookingRepository
	detector  *conflict.Detector
	locker    lock.Locker
	devices   DeviceLookup
	owners    OwnerLookup
	publisher events.Publisher
	metrics   metrics.Recorder
	validator *validator.BookingValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	s := &bookingService{
		repo:      deps.Repo,
		detector:  conflict.NewDetector(deps.Repo),
		locker:    deps.Locker,
		devices:   deps.Devices,
		owners:    deps.Owners,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		cfg:       cfg,
		now:       time.Now,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	return s
}

func (s *bookingService) Create(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionCreate}); err != nil {
		return nil, err
	}

	s.sanitize(req)
	if err := s.validator.Validate(req, s.now()); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"actor_id", actor.ID,
			"device_id", req.DeviceID,
			"error", err,
		)
		return nil, validationError(err)
	}

	if _, err := s.devices.GetByID(ctx, req.DeviceID); err != nil {
		return nil, err
	}

	ownerID, err := s.resolveOwner(ctx, actor, req.OwnerEmail)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionCreate, OwnerID: ownerID}); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		OwnerID:  ownerID,
		DeviceID: req.DeviceID,
		Start:    req.Start.UTC().Truncate(time.Millisecond),
		End:      req.End.UTC().Truncate(time.Millisecond),
		Status:   model.StatusPending,
		Notes:    req.Notes,
	}

	if err := s.insertWithoutConflict(ctx, booking); err != nil {
		return nil, err
	}

	s.metrics.BookingCreated()
	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"device_id", booking.DeviceID,
		"owner_id", booking.OwnerID,
		"actor_id", actor.ID,
		"start_time", booking.Start,
		"end_time", booking.End,
	)

	s.publish(ctx, events.NewBookingEvent(events.TypeBookingCreated, booking, actor.ID))

	return booking, nil
}

// insertWithoutConflict holds the device lock while the overlap check and the
// insert run in one transaction.
func (s *bookingService) insertWithoutConflict(ctx context.Context, booking *model.Booking) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.DeviceLockWait)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, booking.DeviceID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			s.cfg.Log.Warn("Timed out waiting for device lock", "device_id", booking.DeviceID)
			return apperrors.Timeout("Device is busy, please retry")
		}
		s.cfg.Log.Error("Failed to acquire device lock", "device_id", booking.DeviceID, "error", err)
		return apperrors.Internal("Failed to create booking", err)
	}
	defer unlock()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.detector.FindConflict(sessCtx, booking.DeviceID, booking.Start, booking.End, "")
		if err != nil {
			return fmt.Errorf("failed to check for conflicts: %w", err)
		}
		if existing != nil {
			return conflictError(existing)
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})

	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.metrics.BookingConflict()
			s.cfg.Log.Info("Booking conflicts with an existing booking",
				"device_id", booking.DeviceID,
				"start_time", booking.Start,
				"end_time", booking.End,
				"error", err,
			)
			return err
		}
		s.cfg.Log.Error("Failed to create booking",
			"device_id", booking.DeviceID,
			"owner_id", booking.OwnerID,
			"error", err,
		)
		return apperrors.Internal("Failed to create booking", err)
	}
	return nil
}

// resolveOwner decides who the new booking belongs to. Only admins and teachers
// may name another owner, and an unknown email is NotFound rather than a silent
// fallback to the actor.
func (s *bookingService) resolveOwner(ctx context.Context, actor *authz.Actor, ownerEmail string) (string, error) {
	if ownerEmail == "" || ownerEmail == sanitizer.NormalizeEmail(actor.Email) {
		return actor.ID, nil
	}
	if !actor.CanActFor() {
		return "", apperrors.Forbidden("You do not have permission to book for another user")
	}

	owner, err := s.owners.GetByEmail(ctx, ownerEmail)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return "", apperrors.NotFound("Owner")
		}
		return "", err
	}
	return owner.ID, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor *authz.Actor, id string) (*model.Booking, error) {
	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionViewOwn}); apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionViewOwn, OwnerID: booking.OwnerID}); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, actor *authz.Actor) ([]*model.Booking, error) {
	var bookings []*model.Booking
	var err error

	if authz.Decide(authz.Request{Actor: actor, Action: authz.ActionViewAll}) == nil {
		bookings, err = s.repo.FindAll(ctx)
	} else {
		if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionViewOwn, OwnerID: actorID(actor)}); err != nil {
			return nil, err
		}
		bookings, err = s.repo.FindByOwner(ctx, actor.ID)
	}

	if err != nil {
		s.cfg.Log.Error("Failed to list bookings",
			"actor_id", actor.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	sortByStart(bookings)
	return bookings, nil
}

func (s *bookingService) SetStatus(ctx context.Context, actor *authz.Actor, id string, status string) (*model.Booking, error) {
	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionSetStatus}); apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		return nil, err
	}

	if err := s.validator.ValidateStatusUpdate(&model.BookingStatusUpdate{Status: status}); err != nil {
		return nil, validationError(err)
	}
	target, err := model.ParseBookingStatus(status)
	if err != nil {
		return nil, apperrors.Validation("Invalid booking status", map[string]any{
			"status":  status,
			"allowed": model.BookingStatuses,
		})
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(authz.Request{
		Actor:        actor,
		Action:       authz.ActionSetStatus,
		OwnerID:      booking.OwnerID,
		TargetStatus: target,
	}); err != nil {
		return nil, err
	}

	from := booking.Status
	if !from.CanTransitionTo(target) {
		s.cfg.Log.Info("Rejected booking status transition",
			"id", id,
			"from", from,
			"to", target,
			"actor_id", actor.ID,
		)
		return nil, apperrors.InvalidTransition(from.String(), target.String())
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, target)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, s.staleTransition(ctx, id, from, target, actor)
		}
		return nil, s.translateRepoError(err, id, "Failed to update booking status")
	}

	s.metrics.BookingTransition(target.String())
	s.cfg.Log.Info("Booking status updated successfully",
		"id", id,
		"from", from,
		"to", target,
		"actor_id", actor.ID,
	)

	event := events.NewBookingEvent(events.TypeBookingStatusChanged, updated, actor.ID)
	event.FromStatus = from
	s.publish(ctx, event)

	return updated, nil
}

// staleTransition reports a status update that lost a race. The transition is
// re-checked against the stored status so the caller sees where it stands now.
func (s *bookingService) staleTransition(ctx context.Context, id string, from, target model.BookingStatus, actor *authz.Actor) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	s.cfg.Log.Info("Booking status changed during update",
		"id", id,
		"expected", from,
		"current", current.Status,
		"to", target,
		"actor_id", actor.ID,
	)
	return apperrors.InvalidTransition(current.Status.String(), target.String())
}

func (s *bookingService) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionDelete}); apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		return err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := authz.Authorize(authz.Request{Actor: actor, Action: authz.ActionDelete, OwnerID: booking.OwnerID}); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translateRepoError(err, id, "Failed to delete booking")
	}

	s.cfg.Log.Info("Booking deleted successfully",
		"id", id,
		"device_id", booking.DeviceID,
		"actor_id", actor.ID,
	)

	event := events.NewBookingEvent(events.TypeBookingDeleted, booking, actor.ID)
	event.FromStatus = booking.Status
	event.ToStatus = ""
	s.publish(ctx, event)

	return nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) translateRepoError(err error, id, message string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	s.cfg.Log.Error(message,
		"id", id,
		"error", err,
	)
	return apperrors.Internal(message, err)
}

func (s *bookingService) publish(ctx context.Context, event *events.BookingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"type", event.Type,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.DeviceID = sanitizer.NormalizeIdentifier(req.DeviceID)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
	req.OwnerEmail = sanitizer.NormalizeEmail(req.OwnerEmail)
}

func conflictError(existing *model.Booking) error {
	return apperrors.Conflict("Device is already booked for an overlapping time").WithDetails(map[string]any{
		"conflicting_booking_id": existing.ID,
		"start":                  existing.Start,
		"end":                    existing.End,
	})
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Booking validation failed", map[string]any{
			"errors": []validator.ValidationError(verrs),
		})
	}
	return apperrors.Validation("Booking validation failed", map[string]any{
		"error": err.Error(),
	})
}

func actorID(actor *authz.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
