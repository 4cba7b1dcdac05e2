package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sipdah/internal/domain/role"
	"sipdah/internal/infrastructure/http/v1/dto"
)

// RoleService is the subset of role.Service the handler calls.
type RoleService interface {
	Create(ctx context.Context, req role.CreateRequest) (*role.Role, error)
	GetByID(ctx context.Context, roleID string) (*role.Role, error)
	List(ctx context.Context) ([]role.Role, error)
}

// RoleHandler handles role endpoints.
type RoleHandler struct {
	*BaseHandler
	service RoleService
}

func NewRoleHandler(base *BaseHandler, service RoleService) *RoleHandler {
	return &RoleHandler{BaseHandler: base, service: service}
}

// Create handles POST /roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req role.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromRole(r))
}

// Get handles GET /roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	roleID, ok := h.PathID(c)
	if !ok {
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), roleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRole(r))
}

// List handles GET /roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromRoles(roles)))
}

// RegisterRoutes registers role routes; create additionally passes
// through the handlers in admin.
func (h *RoleHandler) RegisterRoutes(rg *gin.RouterGroup, admin ...gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", append(admin, h.Create)...)
}
