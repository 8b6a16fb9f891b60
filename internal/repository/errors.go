package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional update matched no rows
	// because the entity is no longer in the expected state.
	ErrConflict = errors.New("entity state changed")
)
