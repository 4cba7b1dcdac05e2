package dto

import (
	"time"

	"sipdah/internal/domain/auth"
	"sipdah/internal/domain/role"
)

// Cookie names set by the auth endpoints.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
	CookieIsSignedIn   = "is_signed_in"
)

// RefreshTokenRequest for token refresh. The token may instead come from
// the refresh_token cookie.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ToAuthRequest converts to domain request.
func (r *RefreshTokenRequest) ToAuthRequest() auth.RefreshRequest {
	return auth.RefreshRequest{RefreshToken: r.RefreshToken}
}

// TokenResponse represents the issued tokens.
type TokenResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

// FromAuthResponse creates response from domain result.
func FromAuthResponse(r *auth.AuthResponse) *TokenResponse {
	return &TokenResponse{
		UserID:       r.UserID,
		Email:        r.Email,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
	}
}

// RoleResponse represents role in API response.
type RoleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromRole creates response from domain role.
func FromRole(r *role.Role) RoleResponse {
	return RoleResponse{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}
}

// FromRoles converts a slice of roles.
func FromRoles(roles []role.Role) []RoleResponse {
	out := make([]RoleResponse, len(roles))
	for i := range roles {
		out[i] = FromRole(&roles[i])
	}
	return out
}
