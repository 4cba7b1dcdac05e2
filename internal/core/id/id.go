// Package id generates identifiers for persisted entities.
// Entities store ids as opaque strings; UUIDv7 keeps them time-ordered,
// which gives primary key indexes good locality.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// NewString generates a new UUIDv7 in its canonical string form.
func NewString() string {
	return New().String()
}

// Valid reports whether s is a well-formed UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
