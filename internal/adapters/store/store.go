// Package store selects and opens a quote store adapter by driver name.
package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jsamuelsen/inspira/internal/adapters/store/badger"
	"github.com/jsamuelsen/inspira/internal/adapters/store/memory"
	"github.com/jsamuelsen/inspira/internal/adapters/store/sqlite"
	"github.com/jsamuelsen/inspira/internal/ports"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Handle is an opened store: the quote port plus health and lifecycle.
type Handle interface {
	ports.QuoteStore
	ports.HealthChecker
	io.Closer
}

// Config selects and configures the adapter.
type Config struct {
	Driver string
	// Path is a database file for sqlite and a directory for badger.
	Path string
	// SyncWrites applies to badger only.
	SyncWrites bool
	// GCInterval applies to badger only. Zero disables value log GC.
	GCInterval time.Duration
}

// Open opens the adapter named by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case DriverMemory, "":
		return memory.New(), nil

	case DriverSQLite:
		s, err := sqlite.New(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store at %s: %w", cfg.Path, err)
		}

		return s, nil

	case DriverBadger:
		bcfg := badger.DefaultConfig()
		bcfg.Path = cfg.Path
		bcfg.SyncWrites = cfg.SyncWrites
		bcfg.GCInterval = cfg.GCInterval
		bcfg.Logger = logger

		s, err := badger.New(bcfg)
		if err != nil {
			return nil, fmt.Errorf("opening badger store at %s: %w", cfg.Path, err)
		}

		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
