package store

import (
	"github.com/flemzord/mnemo/internal/core"
)

// Module IDs of the built-in non-durable backends.
const (
	MemoryModuleID = "store.memory"
	NopModuleID    = "store.nop"
)

func init() {
	core.RegisterModule(&volatileModule{id: MemoryModuleID, open: func() Store { return InMemory() }})
	core.RegisterModule(&volatileModule{id: NopModuleID, open: func() Store { return Nop{} }})
}

var _ core.Provisioner = (*volatileModule)(nil)

// volatileModule publishes a Store that lives and dies with the process:
// store.memory keeps data until exit, store.nop discards it.
type volatileModule struct {
	id   core.ModuleID
	open func() Store
}

// ModuleInfo implements core.Module.
func (m *volatileModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  m.id,
		New: func() core.Module { return &volatileModule{id: m.id, open: m.open} },
	}
}

// Provision implements core.Provisioner.
func (m *volatileModule) Provision(ctx *core.AppContext) error {
	s := m.open()
	ctx.RegisterService(ReminderService, s)
	ctx.RegisterService(MemoryService, s)
	ctx.Logger.Warn("non-durable store in use, data will not survive a restart")
	return nil
}
