package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid user ID format")

	// ErrDuplicate is returned when the email or student id is already registered.
	ErrDuplicate = errors.New("user already exists")
)
