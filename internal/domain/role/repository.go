package role

import (
	"context"
)

// Repository defines role storage operations.
type Repository interface {
	Create(ctx context.Context, r *Role) error

	// GetByID returns the role or nil when absent.
	GetByID(ctx context.Context, roleID string) (*Role, error)

	// GetByName returns the role or nil when absent.
	GetByName(ctx context.Context, name string) (*Role, error)

	ExistsByName(ctx context.Context, name string) (bool, error)

	// List returns all roles ordered by name.
	List(ctx context.Context) ([]Role, error)

	// Attach grants roleID to userID.
	Attach(ctx context.Context, userID, roleID string) error

	// HasRole reports whether userID holds the role called name.
	HasRole(ctx context.Context, userID, name string) (bool, error)
}
