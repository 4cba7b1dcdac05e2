// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"sipdah/internal/core/ambient"
	"sipdah/internal/core/apperror"
)

// Identity is the verified caller of the current request.
type Identity struct {
	UserID string
	Email  string
}

var identitySlot = ambient.NewSlot[Identity]("identity")

// WithIdentity publishes id into the ambient scope of ctx.
// Only the authentication middleware should call it.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return ambient.Publish(ctx, identitySlot, id)
}

// CurrentIdentity returns the caller identity or Unauthorized when the
// request did not pass through authentication.
func CurrentIdentity(ctx context.Context) (Identity, error) {
	id, ok := ambient.Read(ctx, identitySlot)
	if !ok {
		return Identity{}, apperror.NewUnauthorized("Not authorized")
	}
	return id, nil
}

// LookupIdentity returns the caller identity if one is present.
func LookupIdentity(ctx context.Context) (Identity, bool) {
	return ambient.Read(ctx, identitySlot)
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if id, ok := LookupIdentity(ctx); ok {
		return id.UserID
	}
	return ""
}
