// Package bootstrap wires configuration into a running quote session.
// Both the HTTP service and the CLI start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/inspira/internal/adapters/store"
	"github.com/jsamuelsen/inspira/internal/app"
	"github.com/jsamuelsen/inspira/internal/domain"
	"github.com/jsamuelsen/inspira/internal/platform/config"
	"github.com/jsamuelsen/inspira/internal/platform/logging"
	"github.com/jsamuelsen/inspira/internal/platform/telemetry"
	"github.com/jsamuelsen/inspira/internal/ports"
)

// Runtime holds the opened store and the session built on it.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   store.Handle
	Session *app.Session
	Health  *ports.DefaultHealthRegistry

	telemetry *telemetry.Provider
	onClose   func() error
}

// Options tune Open.
type Options struct {
	// Registerer receives the store collectors. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Observers are attached to the session before the first refresh.
	Observers []ports.SessionObserver

	// OnClose runs last in Runtime.Close, after telemetry is flushed.
	OnClose func() error
}

// LoadConfig loads and validates configuration for profile.
func LoadConfig(profile string) (*config.Config, error) {
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds the process logger from cfg.
// The close func releases the rolling log file and is safe to call when
// file output is disabled.
func NewLogger(cfg *config.Config) (*slog.Logger, func() error) {
	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
}

// Open starts telemetry, opens the configured store and loads a session over it.
// The caller must Close the runtime.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	rule, err := domain.ParseEmptinessRule(cfg.Session.EmptinessRule)
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	policy, err := app.ParseDeletionPolicy(cfg.Session.DeletionPolicy)
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	h, err := store.Open(ctx, store.Config{
		Driver:     cfg.Store.Driver,
		Path:       cfg.Store.Path,
		SyncWrites: cfg.Store.SyncWrites,
		GCInterval: cfg.Store.GCInterval,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, tel.Shutdown(ctx))
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	h = store.Instrument(h, store.NewMetrics(reg))

	health := ports.NewHealthRegistry()
	if err := health.Register(h); err != nil {
		return nil, errors.Join(fmt.Errorf("registering store health check: %w", err), h.Close(), tel.Shutdown(ctx))
	}

	session := app.NewSession(app.SessionConfig{
		Store:            h,
		Logger:           logger,
		EmptinessRule:    rule,
		DeletionPolicy:   policy,
		StrictInvariants: cfg.Session.StrictInvariants,
		Observers:        opts.Observers,
	})

	rt := &Runtime{
		Config:    cfg,
		Logger:    logger,
		Store:     h,
		Session:   session,
		Health:    health,
		telemetry: tel,
		onClose:   opts.OnClose,
	}

	if _, err := session.Refresh(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("loading quotes: %w", err), rt.Close(ctx))
	}

	logger.Info("quote session ready",
		slog.String("store", cfg.Store.Driver),
		slog.Int("quotes", len(session.Quotes())),
	)

	return rt, nil
}

// Close closes the store, then flushes telemetry.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error

	if err := rt.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	if err := rt.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
	}

	if rt.onClose != nil {
		if err := rt.onClose(); err != nil {
			errs = append(errs, fmt.Errorf("closing log output: %w", err))
		}
	}

	return errors.Join(errs...)
}
