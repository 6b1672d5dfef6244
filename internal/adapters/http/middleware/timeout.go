package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/inspira/internal/adapters/http/dto"
	"github.com/jsamuelsen/inspira/internal/platform/logging"
)

// Timeout returns middleware that sets a request deadline.
// Handlers run synchronously; store calls observe the deadline through the
// context. When the deadline passed and the handler wrote nothing, the
// client receives 504 with the error envelope.
//
// Exact paths in skipPaths get no deadline; image uploads use this.
func Timeout(timeout time.Duration, skipPaths ...string) gin.HandlerFunc {
	skipMap := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skipMap[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, skip := skipMap[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			handleTimeout(c, timeout)
		}
	}
}

func handleTimeout(c *gin.Context, timeout time.Duration) {
	traceID := traceIDOf(c)

	logging.FromContext(c.Request.Context()).Warn("request timeout",
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.Duration("timeout", timeout),
		slog.String("trace_id", traceID),
	)

	abortWithCode(c, http.StatusGatewayTimeout, dto.ErrorCodeTimeout, "request timeout exceeded", traceID)
}
