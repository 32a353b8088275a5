// Package app wires configuration, storage and services into a running
// mnemo process. The CLI builds on it for both the daemon and one-shot
// commands.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/reload"
)

// RunParams configures the daemon.
type RunParams struct {
	// ConfigPath is an explicit configuration file. Empty searches the
	// standard locations and falls back to defaults.
	ConfigPath string

	// DataDir overrides the configured data directory.
	DataDir string

	// LogLevel overrides the configured log level.
	LogLevel string

	// Version is injected at build time via ldflags.
	Version string
}

// LoadConfig reads and validates the configuration at path. An empty
// path searches config.SearchPaths; when nothing is found the defaults
// are used and the returned path is empty.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		found, err := config.Find()
		switch {
		case errors.Is(err, config.ErrNotFound):
			cfg := config.Default()
			return cfg, "", config.Validate(cfg)
		case err != nil:
			return nil, "", err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run starts the daemon and blocks until ctx is cancelled or a shutdown
// signal arrives.
func Run(ctx context.Context, params RunParams) error {
	cfg, path, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}
	params.override(cfg)

	rt, err := Open(cfg, Options{Serve: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	rt.Logger.Info("mnemo starting",
		"version", params.Version,
		"config", path,
		"data_dir", cfg.DataDir,
		"remote_embedding", cfg.Embedding.RemoteEnabled(),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		return err
	}

	stopReload := func() {}
	if path != "" {
		if stopReload, err = watchConfig(ctx, path, rt, params.override); err != nil {
			return err
		}
	}

	<-ctx.Done()
	rt.Logger.Info("shutdown signal received")
	stopReload()
	if err := rt.Close(); err != nil {
		return err
	}
	rt.Logger.Info("shutdown complete")
	return nil
}

// override re-applies command-line settings to cfg.
func (p RunParams) override(cfg *config.Config) {
	if p.DataDir != "" {
		cfg.DataDir = p.DataDir
	}
	if p.LogLevel != "" {
		cfg.Log.Level = p.LogLevel
	}
}

// watchConfig re-applies path to rt whenever the file changes or the
// process receives SIGHUP. The returned func stops watching.
func watchConfig(ctx context.Context, path string, rt *Runtime, prepare func(*config.Config)) (func(), error) {
	r, err := reload.New(reload.Config{
		Path:    path,
		Applier: rt,
		Prepare: prepare,
		Logger:  rt.Logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	w := reload.NewWatcher(reload.WatcherConfig{Path: path})
	w.Start(ctx)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, w.Events(), hup)
	}()

	return func() {
		signal.Stop(hup)
		cancel()
		w.Stop()
		<-done
	}, nil
}
