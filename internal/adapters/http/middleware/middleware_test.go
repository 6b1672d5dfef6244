package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/inspira/internal/adapters/http/dto"
	"github.com/jsamuelsen/inspira/internal/platform/logging"
)

const uuidV4Pattern = `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`

func init() {
	gin.SetMode(gin.TestMode)
}

// TestIDMiddleware tests the RequestID and CorrelationID middleware.
func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		get        func(*gin.Context) string
		existing   string
	}{
		{name: "request ID generated", middleware: RequestID(), header: HeaderRequestID, get: GetRequestID},
		{name: "request ID passed through", middleware: RequestID(), header: HeaderRequestID, get: GetRequestID, existing: "existing-req-123"},
		{name: "correlation ID generated", middleware: CorrelationID(), header: HeaderCorrelationID, get: GetCorrelationID},
		{name: "correlation ID passed through", middleware: CorrelationID(), header: HeaderCorrelationID, get: GetCorrelationID, existing: "cli-edit-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var captured string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				captured = tt.get(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.existing != "" {
				req.Header.Set(tt.header, tt.existing)
			}

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, w.Header().Get(tt.header), captured)

			if tt.existing != "" {
				assert.Equal(t, tt.existing, captured)
			} else {
				assert.Regexp(t, uuidV4Pattern, captured)
			}
		})
	}
}

// TestContextLogger_SeedsRequestLogger tests that handler logs go to the
// configured logger, enriched with the request and correlation IDs.
func TestContextLogger_SeedsRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: logging.NewReplaceAttr()}))

	router := gin.New()
	router.Use(ContextLogger(base), RequestID(), CorrelationID())
	router.GET("/api/v1/quotes", func(c *gin.Context) {
		requestLogger(c, nil).Warn("in handler", slog.String("password", "hunter2"))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderCorrelationID, "cli-new-1")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "cli-new-1", entry["correlation_id"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestContextLogger_NilLoggerPassesThrough(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(ContextLogger(nil))
	router.GET("/api/v1/quotes", func(c *gin.Context) {
		assert.Same(t, slog.Default(), logging.FromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestGetIDFromContext tests the internal getIDFromContext helper.
func TestGetIDFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setupCtx func(*gin.Context)
		expected string
	}{
		{
			name:     "returns ID when string value exists",
			setupCtx: func(c *gin.Context) { c.Set("test-key", "test-value") },
			expected: "test-value",
		},
		{
			name:     "returns empty when key not exists",
			setupCtx: func(c *gin.Context) {},
			expected: "",
		},
		{
			name:     "returns empty when value is not string",
			setupCtx: func(c *gin.Context) { c.Set("test-key", 123) },
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			tt.setupCtx(c)

			assert.Equal(t, tt.expected, getIDFromContext(c, "test-key"))
		})
	}
}

// TestLogging tests the Logging middleware.
func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		route     string
		status    int
		skipPaths []string
		wantLevel string
		wantLog   bool
	}{
		{name: "logs normal request", path: "/api/v1/quotes", route: "/api/v1/quotes", status: http.StatusOK, wantLevel: "INFO", wantLog: true},
		{name: "logs route template", path: "/api/v1/quotes/3/select", route: "/api/v1/quotes/:position/select", status: http.StatusOK, wantLevel: "INFO", wantLog: true},
		{name: "400 logs at warn", path: "/api/v1/quotes/current", route: "/api/v1/quotes/current", status: http.StatusBadRequest, wantLevel: "WARN", wantLog: true},
		{name: "503 logs at error", path: "/api/v1/quotes", route: "/api/v1/quotes", status: http.StatusServiceUnavailable, wantLevel: "ERROR", wantLog: true},
		{name: "skips /-/ paths", path: "/-/ready", route: "/-/ready", status: http.StatusOK},
		{name: "skips exact paths", path: "/favicon.ico", route: "/favicon.ico", status: http.StatusOK, skipPaths: []string{"/favicon.ico"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			router := gin.New()
			router.Use(Logging(logger, tt.skipPaths...))
			router.POST(tt.route, func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "request completed", entry["msg"])
			assert.Equal(t, tt.path, entry["path"])
			assert.Equal(t, tt.route, entry["route"])
			assert.EqualValues(t, tt.status, entry["status"])
		})
	}
}

// TestRecovery tests the Recovery middleware.
func TestRecovery(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normal request passes through", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("panicking handler returns 500 envelope", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		router := gin.New()
		router.Use(Recovery(slog.New(slog.NewJSONHandler(&buf, nil))))
		router.GET("/test", func(c *gin.Context) {
			panic("something went wrong")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "something went wrong")
	})

	t.Run("panic after write keeps the written status", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusAccepted, "partial")
			panic("late")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

// TestTimeout tests the Timeout middleware.
func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("sets context deadline", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool

		router := gin.New()
		router.Use(Timeout(5 * time.Second))
		router.GET("/test", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hasDeadline, "request context should have deadline")
	})

	t.Run("skips specified paths", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool

		router := gin.New()
		router.Use(Timeout(time.Second, "/api/v1/quotes/current/image"))
		router.PUT("/api/v1/quotes/current/image", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/quotes/current/image", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, hasDeadline, "skipped path should not have deadline")
	})

	t.Run("expired deadline without a response returns 504", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Timeout(10 * time.Millisecond))
		router.GET("/slow", func(c *gin.Context) {
			<-c.Request.Context().Done()
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeTimeout, resp.Error.Code)
	})

	t.Run("handler response wins over deadline", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Timeout(10 * time.Millisecond))
		router.GET("/slow", func(c *gin.Context) {
			<-c.Request.Context().Done()
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(dto.ErrorCodeUnavailable, "store busy"))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
