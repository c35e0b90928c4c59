package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/service"
	"github.com/openbookapp/openbook-library/internal/store"
	"github.com/openbookapp/openbook-library/internal/store/badger"
	"github.com/openbookapp/openbook-library/internal/store/sqlite"
	"github.com/openbookapp/openbook-library/internal/watch"
)

// WatchHubHandle wraps the change hub with its context for lifecycle management.
type WatchHubHandle struct {
	*watch.Hub
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *WatchHubHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Hub.Shutdown(ctx)
}

// ProvideWatchHub provides the change hub feeding live queries.
func ProvideWatchHub(i do.Injector) (*WatchHubHandle, error) {
	log := do.MustInvoke[*slog.Logger](i)

	hub := watch.NewHub(log)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)

	return &WatchHubHandle{
		Hub:    hub,
		cancel: cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured storage engine.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	hubHandle := do.MustInvoke[*WatchHubHandle](i)

	if err := os.MkdirAll(cfg.Store.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := cfg.DatabasePath()

	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case config.DriverBadger:
		s, err = badger.Open(dbPath, log, hubHandle.Hub)
	case config.DriverSQLite, "":
		s, err = sqlite.Open(dbPath, log, hubHandle.Hub)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info("database initialized", "path", dbPath, "driver", cfg.Store.Driver)

	return &StoreHandle{Store: s}, nil
}

// Bootstrap contains the library bootstrap result.
type Bootstrap struct {
	// SeededSystemLists is true when this run created at least one system list.
	SeededSystemLists bool
}

// ProvideBootstrap makes sure the system lists exist before any other call runs.
func ProvideBootstrap(i do.Injector) (*Bootstrap, error) {
	log := do.MustInvoke[*slog.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	seeded, err := library.SeedSystemLists(context.Background())
	if err != nil {
		return nil, fmt.Errorf("seed system lists: %w", err)
	}

	if seeded {
		log.Info("new library initialized")
	}
	return &Bootstrap{SeededSystemLists: seeded}, nil
}
