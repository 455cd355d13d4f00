package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/jotlist/internal/noteservice"
	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/selection"
	"github.com/starford/jotlist/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Core is the note list wired to its storage backend. Every surface (HTTP,
// MCP, CLI) works through Service.
type Core struct {
	Provider   storage.Provider
	Store      *notestore.Store
	Controller *selection.Controller
	Service    *noteservice.Service

	// DocPath is the document file for the fs backend, empty otherwise.
	DocPath string
}

// OpenCore opens the configured backend and builds the store, the selection
// controller and the service on top of it. The caller must Close it.
func OpenCore(cfg *Config, logger *slog.Logger) (*Core, error) {
	sc := cfg.Storage
	if sc.Backend != storage.BackendFS {
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	provider, err := storage.Open(sc.Backend, sc.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c := &Core{Provider: provider}
	if fs, ok := provider.(*storage.FS); ok {
		if c.DocPath, err = fs.Path(sc.StoreName, sc.EntryName); err != nil {
			_ = provider.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
	}

	c.Store = notestore.New(provider, notestore.WithLocation(sc.StoreName, sc.EntryName))
	if _, err := c.Store.Load(); err != nil {
		// An unreadable document is reported per operation, not fatal here.
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}
	c.Controller = selection.New(c.Store, logger)
	c.Service = noteservice.NewService(c.Store, c.Controller)
	return c, nil
}

// Close releases the storage backend.
func (c *Core) Close() error {
	return c.Provider.Close()
}
