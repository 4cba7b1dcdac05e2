package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipdah/internal/core/apperror"
	appctx "sipdah/internal/core/context"
	"sipdah/internal/domain/auth"
	"sipdah/internal/infrastructure/http/v1/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testTokens() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    time.Hour,
	})
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Trace(), Recovery(), ErrorHandler())
	r.Use(mw...)
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) dto.Envelope {
	t.Helper()
	var env dto.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func whoAmI(c *gin.Context) {
	identity, err := appctx.CurrentIdentity(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEnvelope(http.StatusOK, "", identity.UserID))
}

type verifierFunc func(string) (*auth.Claim, error)

func (f verifierFunc) VerifyAccessToken(token string) (*auth.Claim, error) { return f(token) }

func TestAuth(t *testing.T) {
	tokens := testTokens()
	pair, err := tokens.Issue("u1", "a@x.com")
	require.NoError(t, err)

	t.Run("Should publish the identity from a bearer token", func(t *testing.T) {
		r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
		r.GET("/me", whoAmI)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", decode(t, rec).Data)
	})

	t.Run("Should fall back to the access_token cookie", func(t *testing.T) {
		r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
		r.GET("/me", whoAmI)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: dto.CookieAccessToken, Value: pair.AccessToken})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should reject a missing token before the handler runs", func(t *testing.T) {
		called := false
		r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
		r.GET("/me", func(c *gin.Context) { called = true })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decode(t, rec)
		assert.Nil(t, env.Data)
		assert.Equal(t, http.StatusUnauthorized, env.Status)
		assert.Equal(t, "Not authorized", env.Message)
	})

	t.Run("Should report a malformed token as Unauthorized", func(t *testing.T) {
		called := false
		r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
		r.GET("/me", func(c *gin.Context) { called = true })

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should reject a refresh token used as access token", func(t *testing.T) {
		r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
		r.GET("/me", whoAmI)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should reject a non-bearer scheme", func(t *testing.T) {
		r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
		r.GET("/me", whoAmI)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic "+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should keep verifier internal failures as 500", func(t *testing.T) {
		failing := verifierFunc(func(string) (*auth.Claim, error) {
			return nil, apperror.NewInternal(errors.New("key store down"))
		})
		r := newEngine(Auth(failing))
		r.GET("/me", whoAmI)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer x")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", decode(t, rec).Message)
	})
}

type fakeRoles map[string][]string

func (f fakeRoles) HasRole(_ context.Context, userID, name string) (bool, error) {
	for _, r := range f[userID] {
		if r == name {
			return true, nil
		}
	}
	return false, nil
}

func TestRequireRole(t *testing.T) {
	tokens := testTokens()
	roles := fakeRoles{"admin": {"ADMIN"}, "u1": {"USER"}}

	r := newEngine(Auth(verifierFunc(tokens.VerifyAccess)))
	r.POST("/roles", RequireRole(roles, "ADMIN"), func(c *gin.Context) { c.Status(http.StatusCreated) })

	call := func(userID string) int {
		pair, err := tokens.Issue(userID, userID+"@x.com")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/roles", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, call("admin"))
	assert.Equal(t, http.StatusForbidden, call("u1"))
}

func TestRequireRole_WithoutIdentity(t *testing.T) {
	r := newEngine()
	r.POST("/roles", RequireRole(fakeRoles{}, "ADMIN"), func(c *gin.Context) { c.Status(http.StatusCreated) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/roles", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorHandler(t *testing.T) {
	t.Run("Should render application errors in the envelope", func(t *testing.T) {
		r := newEngine()
		r.GET("/x", func(c *gin.Context) { _ = c.Error(apperror.NewNotFound("user", "u1")) })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		env := decode(t, rec)
		assert.Equal(t, http.StatusNotFound, env.Status)
		assert.Contains(t, env.Message, "user")
	})

	t.Run("Should hide internal causes", func(t *testing.T) {
		r := newEngine()
		r.GET("/x", func(c *gin.Context) {
			_ = c.Error(apperror.NewInternal(errors.New(`relation "users" does not exist`)))
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "relation")
	})

	t.Run("Should treat foreign errors as internal", func(t *testing.T) {
		r := newEngine()
		r.GET("/x", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", decode(t, rec).Message)
	})
}

func TestRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestTrace(t *testing.T) {
	r := newEngine()
	r.GET("/trace", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetRequestID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/trace", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(HeaderTraceID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trace", nil))
	assert.NotEmpty(t, rec.Body.String())
	assert.NotEqual(t, "req-1", rec.Body.String())
	assert.NotEqual(t, rec.Header().Get(HeaderRequestID), rec.Header().Get(HeaderTraceID))

	req = httptest.NewRequest(http.MethodGet, "/trace", nil)
	req.Header.Set(HeaderTraceID, "trace-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "trace-1", rec.Header().Get(HeaderTraceID))
	assert.Equal(t, rec.Body.String(), rec.Header().Get(HeaderRequestID))
}
