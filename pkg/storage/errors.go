package storage

import "errors"

var (
	// ErrNotFound is returned when a result does not exist, was deleted, or
	// belongs to another tenant.
	ErrNotFound = errors.New("result not found")

	// ErrConflict is returned when a result with the same ID already exists.
	ErrConflict = errors.New("result already exists")
)
