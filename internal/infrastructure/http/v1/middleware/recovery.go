// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"sipdah/internal/core/apperror"
	"sipdah/internal/infrastructure/http/v1/dto"
	"sipdah/pkg/logger"
)

// Recovery turns a handler panic into a 500 envelope. A panic unwinds
// ErrorHandler too, so the response is written here.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"panic", p,
					"stack", string(debug.Stack()),
				)

				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", p)))
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					dto.ErrorEnvelope(http.StatusInternalServerError, internalMessage))
			}
		}()
		c.Next()
	}
}
