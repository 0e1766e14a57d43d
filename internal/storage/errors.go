package storage

import "errors"

var (
	// ErrNotFound is returned when a requested position does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a position with the same id is
	// already tracked.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
