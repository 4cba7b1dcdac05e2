package user

import (
	"context"
)

// Repository defines user storage operations. Every method joins the
// ambient unit of work when one is active.
type Repository interface {
	// Create inserts a new user. A duplicate email returns Conflict.
	Create(ctx context.Context, u *User) error

	// GetByID returns the user or nil when absent.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByEmail returns the user or nil when absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// ExistsByEmail reports whether a live user owns email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
