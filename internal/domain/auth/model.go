// Package auth provides sign-up, sign-in, token refresh and sign-out.
package auth

import (
	"context"
	"fmt"
	"time"
)

// SignUpRequest carries input for Service.SignUp.
type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=64"`
	Email    string `json:"email" binding:"required,email,max=64"`
	Password string `json:"password" binding:"required,min=6,max=16"`
}

// SignInRequest carries input for Service.SignIn.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email,max=64"`
	Password string `json:"password" binding:"required,min=6,max=16"`
}

// RefreshRequest carries input for Service.Refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by every operation that issues tokens.
type AuthResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Cache stores refresh-token revocation state.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get reports false when key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// RefreshTokenKey returns the cache key holding userID's current refresh token.
func RefreshTokenKey(userID string) string {
	return fmt.Sprintf("auth:refresh-token:%s", userID)
}
