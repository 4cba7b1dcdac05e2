package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sipdah/internal/core/apperror"
	"sipdah/internal/infrastructure/http/v1/dto"
	"sipdah/pkg/logger"
)

const internalMessage = "Internal server error"

// ErrorHandler renders the last error recorded on the gin context into the
// response envelope. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorEnvelope(http.StatusInternalServerError, internalMessage))
			return
		}

		message := appErr.Message
		if appErr.Code == apperror.CodeInternal {
			logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
			message = internalMessage
		} else if appErr.Err != nil {
			logger.Debug(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}

		c.JSON(appErr.HTTPStatus, dto.ErrorEnvelope(appErr.HTTPStatus, message))
	}
}
