package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Namespaces lists the module namespaces mnemo loads from configuration:
// storage backends and request gateways.
var Namespaces = []string{"store", "gateway"}

var (
	registry   = make(map[ModuleID]ModuleInfo)
	registryMu sync.RWMutex
)

// RegisterModule records a module under the ID reported by its
// ModuleInfo. It panics on an invalid or duplicate ID and is meant to be
// called from init functions.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if err := checkID(info.ID); err != nil {
		panic(err.Error())
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	registry[info.ID] = info
}

// checkID requires a known namespace followed by a non-empty name.
func checkID(id ModuleID) error {
	if id == "" {
		return fmt.Errorf("module ID must not be empty")
	}
	if id.Name() == string(id) || id.Name() == "" {
		return fmt.Errorf("module %s: ID must have the form namespace.name", id)
	}
	if !slices.Contains(Namespaces, id.Namespace()) {
		return fmt.Errorf("module %s: unknown namespace %q (want one of %v)", id, id.Namespace(), Namespaces)
	}
	return nil
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ModuleInfo, 0, len(registry))
	for _, info := range registry {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[ModuleID]ModuleInfo)
}
