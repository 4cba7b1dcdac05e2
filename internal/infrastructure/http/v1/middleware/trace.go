package middleware

import (
	"github.com/gin-gonic/gin"

	"sipdah/internal/core/ambient"
	appctx "sipdah/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace opens the ambient scope of the request and publishes its trace
// IDs. It must run before any middleware that publishes into the scope.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext()
		if v := c.GetHeader(HeaderRequestID); v != "" {
			trace.RequestID = v
		}
		if v := c.GetHeader(HeaderTraceID); v != "" {
			trace.TraceID = v
		}

		ctx := appctx.WithTrace(ambient.NewScope(c.Request.Context()), trace)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", trace.RequestID)

		c.Header(HeaderRequestID, trace.RequestID)
		c.Header(HeaderTraceID, trace.TraceID)

		c.Next()
	}
}
