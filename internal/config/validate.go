package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/mnemo/internal/core"
)

// Validate checks a Config: the version field, every section, that all
// referenced module IDs exist in the registry and that at most one of
// them is a store. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != DefaultVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	for _, err := range []error{
		cfg.Log.validate(),
		cfg.Embedding.validate(),
		cfg.Recall.validate(),
		cfg.Reminders.validate(),
		cfg.Telemetry.validate(),
	} {
		if err != nil {
			errs = append(errs, err)
		}
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if stores := cfg.storeModules(); len(stores) > 1 {
		errs = append(errs, fmt.Errorf("config: only one store module may be configured, got %v", stores))
	}

	return errors.Join(errs...)
}
