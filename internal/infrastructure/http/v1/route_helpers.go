package v1

import (
	"github.com/gin-gonic/gin"

	"sipdah/internal/infrastructure/http/v1/handlers"
	"sipdah/internal/infrastructure/http/v1/middleware"
)

func registerHealthRoutes(router *gin.Engine, cfg RouterConfig) {
	health := handlers.NewHealthHandler(cfg.HealthChecks)
	group := router.Group("/health")
	{
		group.GET("/live", health.Live)
		group.GET("/ready", health.Ready)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
}

// registerAuthRoutes registers authentication endpoints. Sign-out needs a
// verified identity, the rest are public.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	h := handlers.NewAuthHandler(handlers.NewBaseHandler(), cfg.AuthService, cfg.Cookies)

	public := rg.Group("/auth")
	protected := rg.Group("/auth")
	protected.Use(middleware.Auth(cfg.Verifier))

	h.RegisterRoutes(public, protected)
}

func registerUserRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.UserService == nil {
		return
	}
	h := handlers.NewUserHandler(handlers.NewBaseHandler(), cfg.UserService)
	h.RegisterRoutes(rg.Group("/users"))
}

func registerRoleRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.RoleService == nil {
		return
	}
	h := handlers.NewRoleHandler(handlers.NewBaseHandler(), cfg.RoleService)

	var admin []gin.HandlerFunc
	if cfg.Roles != nil {
		admin = append(admin, middleware.RequireRole(cfg.Roles, AdminRole))
	}
	h.RegisterRoutes(rg.Group("/roles"), admin...)
}
