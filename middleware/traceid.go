package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TraceIDKey = "trace_id"
const TraceIDHeader = "X-Trace-ID"

// maxTraceIDLen bounds caller-supplied IDs before they reach the logs.
const maxTraceIDLen = 64

// TraceID injects a UUID trace ID into every request context and response
// header. A caller-supplied ID is kept unless it is too long.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = uuid.New().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the Gin context.
func GetTraceID(c *gin.Context) string {
	if v, exists := c.Get(TraceIDKey); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// TraceLogger returns log annotated with the request's trace ID.
func TraceLogger(c *gin.Context, log *zap.Logger) *zap.Logger {
	if id := GetTraceID(c); id != "" {
		return log.With(zap.String("trace_id", id))
	}
	return log
}
