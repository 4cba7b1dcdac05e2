package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"sipdah/internal/core/apperror"
	"sipdah/internal/core/id"
	"sipdah/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, bindError(err))
		return false
	}
	return true
}

// PathID returns the :id path parameter or records BadRequest when it is
// not a valid id.
func (h *BaseHandler) PathID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	if !id.Valid(raw) {
		h.Error(c, apperror.NewBadRequest("invalid id").WithDetail("id", raw))
		return "", false
	}
	return raw, true
}

// Error registers err on the gin context and aborts the request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewEnvelope(http.StatusOK, "", data))
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewEnvelope(http.StatusCreated, "", data))
}

// Message sends 200 response without data.
func (h *BaseHandler) Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.NewEnvelope(http.StatusOK, message, nil))
}

// bindError turns binding failures into BadRequest naming the first
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		return apperror.NewBadRequest(field+" is invalid").
			WithDetail("field", field).
			WithDetail("rule", fe.Tag()).
			WithCause(err)
	}
	return apperror.NewBadRequest("invalid request body").WithCause(err)
}
