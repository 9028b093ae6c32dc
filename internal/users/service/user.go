package service

import (
	"context"
	"errors"
	"sync"

	"labbook/internal/authz"
	userserrors "labbook/internal/users/errors"
	"labbook/internal/users/repository"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"
	"labbook/pkg/sanitizer"
)

type UserService interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, actor *authz.Actor, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, actor *authz.Actor, limit int, offset int64) ([]*model.User, int64, error)
}

type userService struct {
	repo repository.UserRepository
	cfg  *config.Config
}

func NewUserService(repo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		repo: repo,
		cfg:  cfg,
	}
}

// Create stores a new identity. The caller has already hashed the password.
func (s *userService) Create(ctx context.Context, user *model.User) error {
	user.Email = sanitizer.NormalizeEmail(user.Email)
	user.StudentID = sanitizer.NormalizeIdentifier(user.StudentID)
	user.FirstName = sanitizer.NormalizeName(user.FirstName)
	user.LastName = sanitizer.NormalizeName(user.LastName)

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicate) {
			return apperrors.Conflict("A user with this email or student ID already exists")
		}
		s.cfg.Log.Error("Failed to create user",
			"email", user.Email,
			"error", err,
		)
		return apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User created successfully",
		"id", user.ID,
		"email", user.Email,
		"role", user.Role,
	)
	return nil
}

func (s *userService) GetByID(ctx context.Context, actor *authz.Actor, id string) (*model.User, error) {
	if actor == nil || actor.ID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}
	if !actor.IsAdmin() && actor.ID != id {
		return nil, apperrors.Forbidden("You do not have permission to view this user")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		s.cfg.Log.Error("Failed to get user by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

// GetByEmail is an internal lookup with no actor check. Login and booking owner
// resolution use it.
func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("Email cannot be empty")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		s.cfg.Log.Error("Failed to get user by email", "error", err)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *authz.Actor, limit int, offset int64) ([]*model.User, int64, error) {
	if actor == nil || actor.ID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only administrators can list users")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var users []*model.User
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count users", "error", err)
			errCount = apperrors.Internal("Failed to count users", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		users, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list users",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve users", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return users, count, nil
}
