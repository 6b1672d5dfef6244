// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jsamuelsen/inspira/internal/adapters/http/handlers"
	"github.com/jsamuelsen/inspira/internal/bootstrap"
	"github.com/jsamuelsen/inspira/internal/platform/logging"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := bootstrap.LoadConfig(profile)
	if err != nil {
		return err
	}

	// 3. Initialize logging
	logger, closeLog := bootstrap.NewLogger(cfg)
	logging.SetDefault(logger)

	defer func() { _ = closeLog() }()

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Telemetry, store, health checks and the quote session
	rt, err := bootstrap.Open(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := rt.Close(ctx); closeErr != nil {
			logger.Error("shutdown error", slog.Any("error", closeErr))
		}
	}()

	// 5. Serve until signalled; the store closes after in-flight requests drain
	return bootstrap.Serve(ctx, rt, bootstrap.ServeOptions{
		BuildInfo: handlers.NewBuildInfo(Version, Commit, BuildTime),
	})
}
