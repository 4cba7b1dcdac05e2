package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"sipdah/internal/core/apperror"
	appctx "sipdah/internal/core/context"
	"sipdah/internal/domain/auth"
	"sipdah/internal/infrastructure/http/v1/dto"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claim, error)
}

// RoleChecker answers role membership questions.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, name string) (bool, error)
}

// Auth verifies the access token and publishes the caller identity into the
// request scope. A request without a valid token never reaches the handler.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			abort(c, apperror.NewUnauthorized("Not authorized"))
			return
		}

		claim, err := verifier.VerifyAccessToken(token)
		if err != nil {
			abort(c, authFailure(err))
			return
		}

		publishIdentity(c, claim)
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds any of roles.
// It must run after Auth.
func RequireRole(checker RoleChecker, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		identity, err := appctx.CurrentIdentity(ctx)
		if err != nil {
			abort(c, err)
			return
		}

		for _, name := range roles {
			ok, err := checker.HasRole(ctx, identity.UserID, name)
			if err != nil {
				abort(c, err)
				return
			}
			if ok {
				c.Next()
				return
			}
		}

		abort(c, apperror.NewForbidden("insufficient permissions").WithDetail("required_roles", roles))
	}
}

// extractToken reads a bearer token from the Authorization header, falling
// back to the access_token cookie.
func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}

	if cookie, err := c.Cookie(dto.CookieAccessToken); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// authFailure reports every rejected token as Unauthorized. Internal
// failures keep their kind.
func authFailure(err error) error {
	if apperror.IsUnauthorized(err) || apperror.IsInternal(err) {
		return err
	}
	msg := "Invalid token"
	if appErr, ok := apperror.AsAppError(err); ok {
		msg = appErr.Message
	}
	return apperror.NewUnauthorized(msg).WithCause(err)
}

func publishIdentity(c *gin.Context, claim *auth.Claim) {
	ctx := appctx.WithIdentity(c.Request.Context(), appctx.Identity{
		UserID: claim.UserID(),
		Email:  claim.Email,
	})
	c.Request = c.Request.WithContext(ctx)
	c.Set("user_id", claim.UserID())
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
