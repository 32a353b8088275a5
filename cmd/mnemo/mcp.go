package main

import (
	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/internal/mcptools"
)

func mcpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve reminders and memories as MCP tools over stdio",
		Long: `Serve the Model Context Protocol on stdin/stdout. Logs go to stderr.

Reminders created here are persisted and picked up by the running daemon
("mnemo start") on its next sweep.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := g.openRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			srv, err := mcptools.New(mcptools.Config{
				Reminders: rt.Engine,
				Memories:  rt.Memories,
				Owner:     g.ownerFor(rt),
				Version:   version,
				Logger:    rt.Logger,
			})
			if err != nil {
				return err
			}
			return srv.ServeStdio()
		},
	}
}
