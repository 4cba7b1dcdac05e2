package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sipdah/internal/domain/user"
)

// UserService is the subset of user.Service the handler calls.
type UserService interface {
	GetByID(ctx context.Context, userID string) (*user.Response, error)
	GetCurrent(ctx context.Context) (*user.Response, error)
}

// UserHandler handles user endpoints.
type UserHandler struct {
	*BaseHandler
	service UserService
}

func NewUserHandler(base *BaseHandler, service UserService) *UserHandler {
	return &UserHandler{BaseHandler: base, service: service}
}

// Me handles GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.service.GetCurrent(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, u)
}

// Get handles GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := h.PathID(c)
	if !ok {
		return
	}

	u, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, u)
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.GET("/:id", h.Get)
}
