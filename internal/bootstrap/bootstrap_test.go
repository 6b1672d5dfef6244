package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/inspira/internal/adapters/http/handlers"
	"github.com/jsamuelsen/inspira/internal/platform/config"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()

	cfg, err := config.LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	cfg.Store.Driver = driver
	cfg.Store.Path = filepath.Join(t.TempDir(), "inspira.db")
	require.NoError(t, cfg.Validate())

	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openRuntime(t *testing.T, driver string) (*Runtime, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()

	rt, err := Open(context.Background(), testConfig(t, driver), discardLogger(), Options{Registerer: reg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	return rt, reg
}

func TestOpen_Drivers(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			rt, _ := openRuntime(t, driver)

			assert.Equal(t, driver, rt.Store.Name())
			assert.Empty(t, rt.Session.Quotes())

			q, pos := rt.Session.Displayed()
			assert.Nil(t, q)
			assert.Equal(t, -1, pos)
		})
	}
}

func TestNewLogger_RollingFileClosedWithRuntime(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Log.File.Enabled = true
	cfg.Log.File.Path = filepath.Join(t.TempDir(), "inspira.log")

	logger, closeLog := NewLogger(cfg)

	closed := 0
	rt, err := Open(context.Background(), cfg, logger, Options{
		Registerer: prometheus.NewRegistry(),
		OnClose: func() error {
			closed++
			return closeLog()
		},
	})
	require.NoError(t, err)

	require.NoError(t, rt.Close(context.Background()))
	assert.Equal(t, 1, closed)

	content, err := os.ReadFile(cfg.Log.File.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "quote session ready")
}

func TestRuntimeClose_ReportsOnCloseError(t *testing.T) {
	rt, err := Open(context.Background(), testConfig(t, "memory"), discardLogger(), Options{
		Registerer: prometheus.NewRegistry(),
		OnClose:    func() error { return errors.New("file busy") },
	})
	require.NoError(t, err)

	err = rt.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closing log output: file busy")
}

func TestOpen_RejectsBadSessionPolicy(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Session.DeletionPolicy = "shred"

	_, err := Open(context.Background(), cfg, discardLogger(), Options{Registerer: prometheus.NewRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session config")
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Store.Driver = "postgres"

	_, err := Open(context.Background(), cfg, discardLogger(), Options{Registerer: prometheus.NewRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestNewServer_RoutesThroughSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rt, reg := openRuntime(t, "memory")
	server := NewServer(rt, ServeOptions{
		BuildInfo: handlers.NewBuildInfo("1.2.3", "abc", "now"),
		Gatherer:  reg,
	})

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		server.Engine().ServeHTTP(w, httptest.NewRequest(method, path, nil))

		return w
	}

	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "/api/v1/quotes/drafts").Code)

	w := do(http.MethodGet, "/api/v1/quotes")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Items             []json.RawMessage `json:"items"`
		DisplayedPosition *int              `json:"displayed_position"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Items, 1)
	require.NotNil(t, list.DisplayedPosition)
	assert.Equal(t, 0, *list.DisplayedPosition)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/-/ready").Code)

	metrics := do(http.MethodGet, "/-/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `inspira_store_operations_total{driver="memory",op="create",outcome="ok"} 1`)
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	rt, reg := openRuntime(t, "memory")
	rt.Config.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, Serve(ctx, rt, ServeOptions{Gatherer: reg}))
}
