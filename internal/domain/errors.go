// Package domain defines the records Lunaria stores and synchronizes: the user
// profile, daily mood entries, medications and the safety plan.
package domain

import "errors"

// Common errors.
var (
	// ErrNotFound is returned when a record does not exist in a store.
	ErrNotFound = errors.New("not found")

	// ErrInvalidChecklist is returned when checklist vectors have the wrong length.
	ErrInvalidChecklist = errors.New("invalid checklist")

	// ErrInvalidEntity is returned when a record fails validation.
	ErrInvalidEntity = errors.New("invalid entity")
)
