package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sipdah/internal/core/apperror"
	"sipdah/internal/core/id"
)

// JWTConfig holds token secrets and lifetimes. Access and refresh tokens
// are signed with different secrets so one can never stand in for the other.
type JWTConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Claim is the payload of access and refresh tokens.
type Claim struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// UserID returns the token subject.
func (c *Claim) UserID() string {
	return c.Subject
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// JWTService issues and verifies HS256 tokens.
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config, now: time.Now}
}

// Issue creates an access and a refresh token for the user.
func (s *JWTService) Issue(userID, email string) (*TokenPair, error) {
	now := s.now()

	access, accessExp, err := s.sign(s.config.AccessSecret, s.config.AccessTTL, now, userID, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("sign access token: %w", err))
	}
	refresh, refreshExp, err := s.sign(s.config.RefreshSecret, s.config.RefreshTTL, now, userID, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("sign refresh token: %w", err))
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// RefreshTTL returns the refresh token lifetime.
func (s *JWTService) RefreshTTL() time.Duration {
	return s.config.RefreshTTL
}

func (s *JWTService) sign(secret string, ttl time.Duration, now time.Time, userID, email string) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := Claim{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccess validates an access token.
// Expired tokens are Unauthorized; forged or malformed tokens are BadRequest.
func (s *JWTService) VerifyAccess(token string) (*Claim, error) {
	claim, err := s.parse(s.config.AccessSecret, token)
	if err == nil {
		return claim, nil
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperror.NewUnauthorized("Token is expired").WithCause(err)
	case isInvalidToken(err):
		return nil, apperror.NewBadRequest("Token is not valid").WithCause(err)
	default:
		return nil, apperror.NewInternal(err)
	}
}

// VerifyRefresh validates a refresh token. Every rejection is BadRequest.
func (s *JWTService) VerifyRefresh(token string) (*Claim, error) {
	claim, err := s.parse(s.config.RefreshSecret, token)
	if err == nil {
		return claim, nil
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperror.NewBadRequest("Token is expired").WithCause(err)
	case isInvalidToken(err):
		return nil, apperror.NewBadRequest("Token is not valid").WithCause(err)
	default:
		return nil, apperror.NewInternal(err)
	}
}

func (s *JWTService) parse(secret, tokenString string) (*Claim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claim, ok := token.Claims.(*Claim)
	if !ok || !token.Valid || claim.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claim, nil
}

func isInvalidToken(err error) bool {
	return errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims)
}
