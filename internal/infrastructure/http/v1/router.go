// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"sipdah/internal/infrastructure/http/v1/handlers"
	"sipdah/internal/infrastructure/http/v1/middleware"
	"sipdah/internal/infrastructure/metrics"
	"sipdah/pkg/logger"
)

// AdminRole is required to create roles.
const AdminRole = "ADMIN"

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// Verifier validates access tokens for Auth middleware.
	Verifier middleware.TokenVerifier
	// Roles answers RequireRole checks.
	Roles middleware.RoleChecker

	AuthService handlers.AuthService
	UserService handlers.UserService
	RoleService handlers.RoleService

	Cookies handlers.CookieConfig

	// HealthChecks are probed by /health/ready.
	HealthChecks map[string]handlers.Pinger

	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Trace opens the ambient scope; everything after it publishes into it.
	router.Use(middleware.Trace())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.GinMiddleware())
	}
	router.Use(middleware.ErrorHandler())

	registerHealthRoutes(router, cfg)

	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.Verifier))

		registerUserRoutes(protected, cfg)
		registerRoleRoutes(protected, cfg)
	}

	return router
}
