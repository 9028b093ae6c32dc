package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means the booking left the expected status before the
	// update was applied.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	// ErrLockHeld means another writer holds the device lock.
	ErrLockHeld = errors.New("device lock is held")
)
