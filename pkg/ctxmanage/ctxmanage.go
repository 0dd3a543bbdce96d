// Package ctxmanage carries the per-request trace id through the request
// context so handlers and middleware log under the same id.
package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey int

const TraceIDKey ctxKey = 1

// WithTraceID returns a context tagged with the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceIdOfRequest returns the trace id set by the logging middleware.
// If the middleware did not run a fresh id is generated so log lines are
// never left without one.
func GetTraceIdOfRequest(c *gin.Context) string {
	traceID, ok := c.Request.Context().Value(TraceIDKey).(string)
	if !ok {
		return uuid.NewString()
	}
	return traceID
}
