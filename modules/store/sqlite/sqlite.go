// Package sqlite implements the store.sqlite module: durable reminder
// and memory storage on modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mnemo/internal/core"
	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/reminder"
	"github.com/flemzord/mnemo/internal/store"
)

// ModuleID is the registered ID of this module.
const ModuleID = "store.sqlite"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ reminder.Store     = (*Store)(nil)
	_ reminder.DueLister = (*Store)(nil)
	_ memory.Store       = (*Store)(nil)
	_ store.Store        = (*Store)(nil)
	_ core.Configurable  = (*Module)(nil)
	_ core.Provisioner   = (*Module)(nil)
	_ core.Validator     = (*Module)(nil)
	_ core.Stopper       = (*Module)(nil)
)

// Module owns the database for the lifetime of the app.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It opens the database and
// publishes the store under store.ReminderService and store.MemoryService.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}
	if dims, ok := core.Service[int](ctx, "embedding.dimensions"); ok && dims > 0 {
		m.config.Dimensions = dims
	}

	s, err := Open(context.Background(), m.config, ctx.Logger)
	if err != nil {
		return err
	}
	m.store = s

	ctx.RegisterService(store.ReminderService, s)
	ctx.RegisterService(store.MemoryService, s)

	m.logger.Info("sqlite store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
		"dimensions", m.config.Dimensions,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.store.Ping(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	m.logger.Info("sqlite store stopping")
	return m.store.Close()
}

// Store returns the opened store.
func (m *Module) Store() *Store { return m.store }
