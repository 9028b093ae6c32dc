package auth

import (
	"context"

	apperrors "labbook/pkg/errors"
	"labbook/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

const DefaultHashCost = bcrypt.DefaultCost

// UserFinder resolves a user by email. It returns a NOT_FOUND AppError when there
// is no such user.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verifier checks an email and password pair against the stored bcrypt hash.
type Verifier struct {
	users     UserFinder
	dummyHash []byte
}

func NewVerifier(users UserFinder, cost int) (*Verifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("labbook-unknown-user"), cost)
	if err != nil {
		return nil, err
	}
	return &Verifier{users: users, dummyHash: dummy}, nil
}

// Verify returns the matching user, or InvalidCredentials when the email is
// unknown or the password is wrong. Unknown emails still pay for one bcrypt
// comparison so the two cases take about the same time.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*model.User, error) {
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) || apperrors.HasCode(err, apperrors.CodeInvalidInput) {
			_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
			return nil, apperrors.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidCredentials()
	}
	return user, nil
}
