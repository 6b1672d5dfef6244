package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/inspira/internal/adapters/http"
	"github.com/jsamuelsen/inspira/internal/adapters/http/handlers"
)

// ServeOptions tune Serve.
type ServeOptions struct {
	BuildInfo handlers.BuildInfo

	// Gatherer backs /-/metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// NewServer builds the HTTP server over the runtime's session.
func NewServer(rt *Runtime, opts ServeOptions) *http.Server {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	healthHandler := handlers.NewHealthHandler(rt.Health, opts.BuildInfo, handlers.WithGatherer(gatherer))
	quoteHandler := handlers.NewQuoteHandler(rt.Session)

	server := http.New(&rt.Config.Server, rt.Logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        rt.Logger,
		AppConfig:     &rt.Config.App,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       rt.Config.Server.RequestTimeout,
	})

	return server
}

// Serve runs the HTTP server until ctx is cancelled, SIGINT or SIGTERM
// arrives, or the server fails. In-flight requests are drained before it
// returns; closing the runtime is left to the caller.
func Serve(ctx context.Context, rt *Runtime, opts ServeOptions) error {
	server := NewServer(rt, opts)
	serverErr := server.Start()

	return waitForShutdown(ctx, rt.Logger, server, serverErr, rt.Config.Server.ShutdownTimeout)
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))

	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	// The parent may already be cancelled; draining still gets its full window.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
