package auth

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"labbook/internal/authz"
	"labbook/internal/throttle"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/metrics"
	"labbook/pkg/model"
	"labbook/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

// UserStore is the slice of the user service that authentication needs.
type UserStore interface {
	UserFinder
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, actor *authz.Actor, id string) (*model.User, error)
}

type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (*AuthResult, error)
	Register(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error)
	Me(ctx context.Context, actor *authz.Actor) (*model.User, error)
}

type Dependencies struct {
	Users    UserStore
	Verifier *Verifier
	Tokens   *TokenService
	Throttle *throttle.Throttle
	Metrics  metrics.Recorder
	HashCost int
}

type service struct {
	users    UserStore
	verifier *Verifier
	tokens   *TokenService
	throttle *throttle.Throttle
	metrics  metrics.Recorder
	hashCost int
	validate *validator.Validate
	cfg      *config.Config
}

func NewService(deps Dependencies, cfg *config.Config) Service {
	s := &service{
		users:    deps.Users,
		verifier: deps.Verifier,
		tokens:   deps.Tokens,
		throttle: deps.Throttle,
		metrics:  deps.Metrics,
		hashCost: deps.HashCost,
		validate: validator.New(),
		cfg:      cfg,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.hashCost == 0 {
		s.hashCost = DefaultHashCost
	}
	s.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	return s
}

// Login checks the throttle before touching the credentials, so a locked-out
// identity is refused even with the right password.
func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*AuthResult, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validateRequest("Login", req); err != nil {
		return nil, err
	}

	if err := s.throttle.Check(req.Email); err != nil {
		var locked *throttle.LockedError
		if errors.As(err, &locked) {
			s.cfg.Log.Warn("Login refused while locked out",
				"email", req.Email,
				"retry_after_seconds", locked.RetryAfterSeconds(),
			)
			return nil, apperrors.RateLimited("Too many login attempts, please try again later", locked.RetryAfter)
		}
		return nil, apperrors.Internal("Failed to check login throttle", err)
	}

	user, err := s.verifier.Verify(ctx, req.Email, req.Password)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvalidCredentials) {
			s.metrics.LoginFailure()
			if s.throttle.RecordFailure(req.Email) {
				s.metrics.LoginLockout()
				s.cfg.Log.Warn("Identity locked out after repeated login failures", "email", req.Email)
			}
			return nil, err
		}
		s.cfg.Log.Error("Failed to verify credentials", "email", req.Email, "error", err)
		return nil, apperrors.Internal("Failed to verify credentials", err)
	}

	s.throttle.RecordSuccess(req.Email)
	s.cfg.Log.Info("User logged in", "id", user.ID, "role", user.Role)
	return s.issue(user)
}

func (s *service) Register(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validateRequest("Register", req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password, s.hashCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		StudentID:    req.StudentID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.RoleStudent,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *service) Me(ctx context.Context, actor *authz.Actor) (*model.User, error) {
	if actor == nil || actor.ID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return s.users.GetByID(ctx, actor, actor.ID)
}

func (s *service) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		s.cfg.Log.Error("Failed to issue token", "id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to issue token", err)
	}
	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *service) validateRequest(op string, req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.InvalidInput("Invalid request")
	}

	fields := make(map[string]any, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Field()] = fe.Tag()
	}
	s.cfg.Log.Debug("Auth request validation failed", "operation", op, "fields", fields)
	return apperrors.Validation(op+" request validation failed", map[string]any{"fields": fields})
}
