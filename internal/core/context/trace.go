package context

import (
	"context"

	"sipdah/internal/core/ambient"
	"sipdah/internal/core/id"
)

// TraceContext contains request tracing information.
type TraceContext struct {
	TraceID   string
	RequestID string
}

var traceSlot = ambient.NewSlot[TraceContext]("trace")

// WithTrace publishes trace info into the ambient scope of ctx.
func WithTrace(ctx context.Context, trace TraceContext) context.Context {
	return ambient.Publish(ctx, traceSlot, trace)
}

// GetTrace returns trace info from context.
func GetTrace(ctx context.Context) (TraceContext, bool) {
	return ambient.Read(ctx, traceSlot)
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t, ok := GetTrace(ctx); ok {
		return t.RequestID
	}
	return ""
}

// NewTraceContext creates a TraceContext with generated IDs.
func NewTraceContext() TraceContext {
	return TraceContext{
		TraceID:   id.New().String(),
		RequestID: id.New().String(),
	}
}
