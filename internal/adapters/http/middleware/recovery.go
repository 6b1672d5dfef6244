package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/inspira/internal/adapters/http/dto"
	"github.com/jsamuelsen/inspira/internal/platform/logging"
)

// Recovery returns middleware that recovers from panics.
// The panic is logged with its stack at ERROR level and the client receives
// a 500 error envelope carrying the trace ID.
//
// Apply it first so it also covers the other middleware.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctxLogger := requestLogger(c, logger)
			traceID := traceIDOf(c)

			ctxLogger.Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			abortWithCode(c, http.StatusInternalServerError, dto.ErrorCodeInternal, "an internal error occurred", traceID)
		}()

		c.Next()
	}
}

// requestLogger prefers the request-scoped logger set by RequestID.
func requestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if fallback == nil || GetRequestID(c) != "" {
		return logging.FromContext(c.Request.Context())
	}

	return fallback
}

func traceIDOf(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

// abortWithCode writes the error envelope unless the handler already wrote.
func abortWithCode(c *gin.Context, status int, code, message, traceID string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message).WithTraceID(traceID))
}
