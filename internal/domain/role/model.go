// Package role provides the role domain.
package role

import (
	"time"

	"sipdah/internal/core/id"
)

// DefaultName is the role attached to every new account.
const DefaultName = "USER"

// Role represents a named permission group.
type Role struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewRole creates a role with a fresh id.
func NewRole(name string) *Role {
	now := time.Now().UTC()
	return &Role{
		ID:        id.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateRequest carries input for Service.Create.
type CreateRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}
