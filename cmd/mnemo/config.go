package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/gateway"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and open the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				g.configPath = args[0]
			}
			rt, err := g.openRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			out := cmd.OutOrStdout()
			cfg := rt.Config
			fmt.Fprintln(out, "Configuration OK")
			fmt.Fprintf(out, "  data_dir:   %s\n", cfg.DataDir)
			fmt.Fprintf(out, "  embedding:  %s (%d dimensions)\n", embeddingMode(cfg), cfg.Embedding.Dimensions)
			fmt.Fprintf(out, "  owner:      %s\n", cfg.Reminders.DefaultOwner)
			for _, id := range config.Resolve(cfg, cfg.StoreModule()) {
				fmt.Fprintf(out, "  module:     %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

func embeddingMode(cfg *config.Config) string {
	if cfg.Embedding.RemoteEnabled() {
		return "remote " + cfg.Embedding.BaseURL
	}
	return "local"
}

// initAnswers holds the init form fields.
type initAnswers struct {
	DataDir   string
	Owner     string
	LogFormat string
	Remote    bool
	BaseURL   string
	Model     string
	APIKeyEnv string
	Gateway   bool
	Bind      string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		DataDir:   config.DefaultDataDir(),
		Owner:     config.DefaultOwner,
		LogFormat: "text",
		APIKeyEnv: "MNEMO_EMBEDDING_API_KEY",
		Gateway:   true,
		Bind:      "127.0.0.1:8080",
	}
}

func initCmd() *cobra.Command {
	var (
		path     string
		defaults bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.SearchPaths()[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			answers := defaultAnswers()
			if !defaults {
				if err := runInitForm(&answers); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("init aborted")
					}
					return err
				}
			}

			cfg, err := answers.config()
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Write(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", "", "Where to write the file (default: first search path)")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Skip the form and write defaults")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runInitForm(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Data directory").
				Description("Where the reminder and memory database lives.").
				Value(&a.DataDir),
			huh.NewInput().
				Title("Default owner").
				Value(&a.Owner).
				Validate(required("owner")),
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("text", "json")...).
				Value(&a.LogFormat),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use a remote embedding provider?").
				Description("Without one, memories are embedded locally with a hashed bag of words.").
				Value(&a.Remote),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Provider base URL").
				Placeholder("https://api.openai.com/v1").
				Value(&a.BaseURL).
				Validate(httpURL),
			huh.NewInput().
				Title("Model").
				Value(&a.Model),
			huh.NewInput().
				Title("API key environment variable").
				Value(&a.APIKeyEnv),
		).WithHideFunc(func() bool { return !a.Remote }),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the HTTP gateway?").
				Value(&a.Gateway),
			huh.NewInput().
				Title("Bind address").
				Value(&a.Bind),
		),
	)
	return form.Run()
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func httpURL(s string) error {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return errors.New("must start with http:// or https://")
	}
	return nil
}

// config renders the answers as a configuration.
func (a initAnswers) config() (*config.Config, error) {
	cfg := config.Default()
	cfg.DataDir = filepath.Clean(a.DataDir)
	cfg.Reminders.DefaultOwner = a.Owner
	cfg.Log.Format = a.LogFormat
	if a.Remote {
		cfg.Embedding.BaseURL = a.BaseURL
		cfg.Embedding.Model = a.Model
		cfg.Embedding.APIKeyEnv = a.APIKeyEnv
	}
	if a.Gateway {
		node, err := gatewayNode(a.Bind)
		if err != nil {
			return nil, err
		}
		cfg.Modules = map[string]yaml.Node{gateway.ModuleID: node}
	}
	return cfg, nil
}

func gatewayNode(bind string) (yaml.Node, error) {
	var node yaml.Node
	if err := node.Encode(map[string]string{"bind": bind}); err != nil {
		return yaml.Node{}, fmt.Errorf("encode gateway config: %w", err)
	}
	return node, nil
}
