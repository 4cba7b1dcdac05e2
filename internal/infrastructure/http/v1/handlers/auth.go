// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"sipdah/internal/domain/auth"
	"sipdah/internal/infrastructure/http/v1/dto"
)

// AuthService is the subset of auth.Service the handler calls.
type AuthService interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.AuthResponse, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (*auth.AuthResponse, error)
	Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.AuthResponse, error)
	SignOut(ctx context.Context) error
}

// CookieConfig controls the auth cookies.
type CookieConfig struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service AuthService
	cookies CookieConfig
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
		cookies:     cookies,
	}
}

// SignUp handles POST /auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req auth.SignUpRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.setCookies(c, res)
	h.Created(c, dto.FromAuthResponse(res))
}

// SignIn handles POST /auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req auth.SignInRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.setCookies(c, res)
	h.OK(c, dto.FromAuthResponse(res))
}

// Refresh handles POST /auth/refresh. The token is read from the body,
// then from the refresh_token cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(dto.CookieRefreshToken)
	}

	res, err := h.service.Refresh(c.Request.Context(), req.ToAuthRequest())
	if err != nil {
		h.clearCookies(c)
		h.Error(c, err)
		return
	}

	h.setCookies(c, res)
	h.OK(c, dto.FromAuthResponse(res))
}

// SignOut handles POST /auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}

	h.clearCookies(c)
	h.Message(c, "Signed out")
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/signup", h.SignUp)
	public.POST("/signin", h.SignIn)
	public.POST("/refresh", h.Refresh)

	protected.POST("/signout", h.SignOut)
}

func (h *AuthHandler) setCookies(c *gin.Context, res *auth.AuthResponse) {
	access := int(h.cookies.AccessTTL.Seconds())
	refresh := int(h.cookies.RefreshTTL.Seconds())

	c.SetCookie(dto.CookieAccessToken, res.AccessToken, access, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(dto.CookieRefreshToken, res.RefreshToken, refresh, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(dto.CookieIsSignedIn, "true", refresh, "/", h.cookies.Domain, h.cookies.Secure, false)
}

func (h *AuthHandler) clearCookies(c *gin.Context) {
	for _, name := range []string{dto.CookieAccessToken, dto.CookieRefreshToken, dto.CookieIsSignedIn} {
		c.SetCookie(name, "", -1, "/", h.cookies.Domain, h.cookies.Secure, name != dto.CookieIsSignedIn)
	}
}
