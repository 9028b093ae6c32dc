package errors

import "errors"

var (
	ErrNotFound  = errors.New("device not found")
	ErrInvalidID = errors.New("invalid device ID")
	ErrDuplicate = errors.New("device already registered")
)
