package reload

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/flemzord/mnemo/internal/config"
)

// Applier takes a validated configuration into use.
type Applier interface {
	Apply(cfg *config.Config) error
}

// Config configures a Reloader.
type Config struct {
	// Path is the configuration file to read.
	Path string
	// Applier receives each configuration that loads and validates.
	Applier Applier
	// Prepare adjusts a freshly loaded configuration before validation,
	// for example to re-apply command-line overrides.
	Prepare func(*config.Config)
	Logger  *slog.Logger
}

// Reloader reads the configuration file and hands it to an Applier.
// A file that fails to load or validate leaves the running configuration
// untouched.
type Reloader struct {
	path    string
	applier Applier
	prepare func(*config.Config)
	logger  *slog.Logger
}

// New creates a Reloader.
func New(cfg Config) (*Reloader, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("reload: path is required")
	}
	if cfg.Applier == nil {
		return nil, fmt.Errorf("reload: applier is required")
	}
	r := &Reloader{
		path:    cfg.Path,
		applier: cfg.Applier,
		prepare: cfg.Prepare,
		logger:  cfg.Logger,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Reload loads, validates and applies the file once.
func (r *Reloader) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	cfg, err := config.Load(r.path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if r.prepare != nil {
		r.prepare(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := r.applier.Apply(cfg); err != nil {
		return fmt.Errorf("reload: apply: %w", err)
	}
	return nil
}

// Run reloads on every file event or signal until ctx is done. Either
// channel may be nil.
func (r *Reloader) Run(ctx context.Context, events <-chan Event, signals <-chan os.Signal) {
	for {
		var trigger string
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			trigger = "file"
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			trigger = sig.String()
		}

		if err := r.Reload(ctx); err != nil {
			r.logger.Error("configuration reload failed, keeping previous configuration",
				"path", r.path,
				"trigger", trigger,
				"error", err,
			)
			continue
		}
		r.logger.Info("configuration reloaded", "path", r.path, "trigger", trigger)
	}
}
