package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a compare-and-set write finds the row no
	// longer in the expected state.
	ErrConflict = errors.New("conflict: row changed concurrently")
)
