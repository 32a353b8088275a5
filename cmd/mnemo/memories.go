package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/pkg/app"
)

func rememberCmd(g *globalFlags) *cobra.Command {
	var meta map[string]string
	cmd := &cobra.Command{
		Use:   "remember <text>",
		Short: "Store a memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				m, err := rt.Memories.Remember(ctx, g.ownerFor(rt), strings.Join(args, " "), meta)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Remembered %s\n", m.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "Metadata as key=value pairs")
	return cmd
}

func recallCmd(g *globalFlags) *cobra.Command {
	var (
		topK      int
		threshold float64
		list      bool
	)
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Search memories by meaning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				owner := g.ownerFor(rt)

				if list || len(args) == 0 {
					ms, err := rt.Memories.List(ctx, owner)
					if err != nil {
						return err
					}
					if len(ms) == 0 {
						fmt.Fprintln(out, "No memories.")
					}
					for _, m := range ms {
						fmt.Fprintf(out, "%s  %s\n", m.ID, m.Content)
					}
					return nil
				}

				var opts []memory.RecallOption
				if topK > 0 {
					opts = append(opts, memory.WithTopK(topK))
				}
				if cmd.Flags().Changed("threshold") {
					opts = append(opts, memory.WithThreshold(threshold))
				}
				results := rt.Memories.Recall(ctx, owner, strings.Join(args, " "), opts...)
				if len(results) == 0 {
					fmt.Fprintln(out, "Nothing relevant.")
					return nil
				}
				fmt.Fprint(out, memory.Format(results))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "Maximum results (default: recall.top_k)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity (default: recall.threshold)")
	cmd.Flags().BoolVar(&list, "list", false, "List every memory instead of searching")
	return cmd
}

func forgetCmd(g *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "forget [id]",
		Short: "Delete a memory, or all of them with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("an id or --all is required")
			}
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				if all {
					n, err := rt.Memories.ForgetAll(ctx, g.ownerFor(rt))
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Forgot %d memories\n", n)
					return nil
				}
				found, err := rt.Memories.Forget(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("memory %s not found", args[0])
				}
				fmt.Fprintf(out, "Forgot %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Forget every memory of the owner")
	return cmd
}
