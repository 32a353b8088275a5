package config

import (
	"slices"

	"github.com/flemzord/mnemo/internal/core"
)

// DefaultStoreModule is loaded when the modules section names no store.
const DefaultStoreModule = "store.sqlite"

// Resolve returns the module IDs to load: every configured module plus
// required, sorted for deterministic loading.
func Resolve(cfg *Config, required ...string) []string {
	ids := make([]string, 0, len(cfg.Modules)+len(required))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	for _, id := range required {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// StoreModule returns the ID of the configured store module, or
// DefaultStoreModule when none is configured. Validate rejects configs
// naming more than one.
func (c *Config) StoreModule() string {
	if stores := c.storeModules(); len(stores) > 0 {
		return stores[0]
	}
	return DefaultStoreModule
}

func (c *Config) storeModules() []string {
	var out []string
	for id := range c.Modules {
		if core.ModuleID(id).Namespace() == "store" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
