package auth

import (
	"context"
	"strings"

	"sipdah/internal/core/apperror"
	appctx "sipdah/internal/core/context"
	"sipdah/internal/core/tx"
	"sipdah/internal/domain/role"
	"sipdah/internal/domain/user"
	"sipdah/pkg/logger"
)

// Service provides authentication logic.
type Service struct {
	users  user.Repository
	roles  role.Repository
	txm    tx.Manager
	tokens *JWTService
	cache  Cache
	hasher PasswordHasher
}

// NewService creates a new auth service.
func NewService(
	users user.Repository,
	roles role.Repository,
	txm tx.Manager,
	tokens *JWTService,
	cache Cache,
	hasher PasswordHasher,
) *Service {
	return &Service{
		users:  users,
		roles:  roles,
		txm:    txm,
		tokens: tokens,
		cache:  cache,
		hasher: hasher,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates the account and attaches the default role in one unit of
// work. If either write fails nothing is persisted.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	u, err := tx.Run(ctx, s.txm, func(ctx context.Context) (*user.User, error) {
		exists, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.NewConflict("Email " + email + " already exists").WithDetail("email", email)
		}

		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}

		u := user.NewUser(strings.TrimSpace(req.Name), email, hash)
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}

		defaultRole, err := s.roles.GetByName(ctx, role.DefaultName)
		if err != nil {
			return nil, err
		}
		if defaultRole == nil {
			return nil, apperror.NewNotFound("role", role.DefaultName)
		}

		if err := s.roles.Attach(ctx, u.ID, defaultRole.ID); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user signed up", "user_id", u.ID)
	return s.issue(ctx, u.ID, u.Email)
}

// SignIn checks credentials and issues a new token pair.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NewNotFound("user", email)
	}

	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	return s.issue(ctx, u.ID, u.Email)
}

// Refresh rotates the token pair. The presented token must verify and
// match the one cached for its subject.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, apperror.NewBadRequest("Token is required").WithDetail("field", "refreshToken")
	}

	claim, err := s.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	cached, ok, err := s.cache.Get(ctx, RefreshTokenKey(claim.Subject))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewNotFound("refresh token", claim.Subject)
	}
	if cached != req.RefreshToken {
		return nil, apperror.NewBadRequest("Token doesn't match")
	}

	u, err := s.users.GetByID(ctx, claim.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NewNotFound("user", claim.Subject)
	}

	return s.issue(ctx, u.ID, u.Email)
}

// SignOut revokes the caller's refresh token.
func (s *Service) SignOut(ctx context.Context) error {
	identity, err := appctx.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, RefreshTokenKey(identity.UserID)); err != nil {
		return err
	}

	logger.Info(ctx, "user signed out", "email", identity.Email)
	return nil
}

// VerifyAccessToken validates an access token for the auth middleware.
func (s *Service) VerifyAccessToken(token string) (*Claim, error) {
	return s.tokens.VerifyAccess(token)
}

func (s *Service) issue(ctx context.Context, userID, email string) (*AuthResponse, error) {
	pair, err := s.tokens.Issue(userID, email)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, RefreshTokenKey(userID), pair.RefreshToken, s.tokens.RefreshTTL()); err != nil {
		return nil, err
	}

	return &AuthResponse{
		UserID:       userID,
		Email:        email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}
