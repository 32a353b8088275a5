// Package main is the entry point for the mnemo CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/core"
	"github.com/flemzord/mnemo/internal/logging"
	"github.com/flemzord/mnemo/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
	owner      string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mnemo",
		Short:         "Reminders and semantic memory for a personal assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to configuration file")
	pf.StringVar(&g.dataDir, "data-dir", "", "Override the data directory")
	pf.StringVar(&g.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	pf.StringVar(&g.owner, "owner", "", "Owner to act for (defaults to reminders.default_owner)")

	root.AddCommand(
		versionCmd(),
		startCmd(g),
		configCmd(g),
		initCmd(),
		remindCmd(g),
		remindersCmd(g),
		rememberCmd(g),
		recallCmd(g),
		forgetCmd(g),
		embeddingCmd(),
		mcpCmd(g),
		serviceCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mnemo %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the reminder scheduler, notification hub and HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.RunParams{
				ConfigPath: g.configPath,
				DataDir:    g.dataDir,
				LogLevel:   g.logLevel,
				Version:    version,
			})
		},
	}
}

// loadConfig resolves the configuration and applies flag overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, _, err := app.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// openRuntime opens a one-shot runtime. One-shot commands stay quiet
// below warn unless a level is requested.
func (g *globalFlags) openRuntime() (*app.Runtime, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	level := g.logLevel
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, app.Options{Logger: logger})
}

// ownerFor returns the --owner flag or the configured default.
func (g *globalFlags) ownerFor(rt *app.Runtime) string {
	if g.owner != "" {
		return g.owner
	}
	return rt.Config.Reminders.DefaultOwner
}

// withRuntime runs fn against a one-shot runtime and closes it.
func (g *globalFlags) withRuntime(ctx context.Context, fn func(ctx context.Context, rt *app.Runtime) error) error {
	rt, err := g.openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(ctx, rt)
}
