package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/pkg/app"
)

// daemon adapts app.Run to the service manager's Start/Stop contract.
type daemon struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

// Start must not block.
func (d *daemon) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan error, 1)
	go func() { d.done <- app.Run(ctx, d.params) }()
	return nil
}

func (d *daemon) Stop(service.Service) error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	return <-d.done
}

func serviceConfig(g *globalFlags) *service.Config {
	args := []string{"service", "run"}
	if g.configPath != "" {
		args = append(args, "--config", g.configPath)
	}
	if g.dataDir != "" {
		args = append(args, "--data-dir", g.dataDir)
	}
	return &service.Config{
		Name:        "mnemo",
		DisplayName: "mnemo",
		Description: "Reminder scheduler and semantic memory daemon.",
		Arguments:   args,
		Option:      service.KeyValue{"UserService": true},
	}
}

func serviceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install and control mnemo as an OS service",
	}

	newService := func() (service.Service, *daemon, error) {
		d := &daemon{params: app.RunParams{
			ConfigPath: g.configPath,
			DataDir:    g.dataDir,
			LogLevel:   g.logLevel,
			Version:    version,
		}}
		s, err := service.New(d, serviceConfig(g))
		if err != nil {
			return nil, nil, fmt.Errorf("service: %w", err)
		}
		return s, d, nil
	}

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the mnemo service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, _, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService()
			if err != nil {
				return err
			}
			st, err := s.Status()
			if err != nil {
				return fmt.Errorf("service status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusName(st))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager (used by the installed unit)",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, _, err := newService()
			if err != nil {
				return err
			}
			if err := s.Run(); err != nil {
				slog.Error("service run failed", "error", err)
				return err
			}
			return nil
		},
	})
	return cmd
}

func statusName(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
