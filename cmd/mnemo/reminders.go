package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/internal/reminder"
	"github.com/flemzord/mnemo/pkg/app"
)

func remindCmd(g *globalFlags) *cobra.Command {
	var (
		every time.Duration
		in    time.Duration
		at    string
	)
	cmd := &cobra.Command{
		Use:   "remind <text>",
		Short: "Create a reminder",
		Long: `Create a reminder from a natural-language request:

  mnemo remind "remind me to drink water every 30 minutes"
  mnemo remind "remind me to call mom at 6pm"

or from a message with --every, --in or --at:

  mnemo remind --every 1h "Stand up"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				owner := g.ownerFor(rt)

				var (
					r   reminder.Reminder
					err error
				)
				switch {
				case every > 0:
					r, err = rt.Engine.Create(ctx, owner, text, reminder.KindRecurring, reminder.Params{Interval: every})
				case in > 0:
					r, err = rt.Engine.Create(ctx, owner, text, reminder.KindOneTime, reminder.Params{At: time.Now().Add(in)})
				case at != "":
					when, perr := time.ParseInLocation(time.DateTime, at, time.Local)
					if perr != nil {
						return fmt.Errorf("--at: want %q: %w", time.DateTime, perr)
					}
					r, err = rt.Engine.Create(ctx, owner, text, reminder.KindOneTime, reminder.Params{At: when})
				default:
					r, err = rt.Engine.CreateFromText(ctx, owner, text)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", describe(r))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "Repeat at this interval")
	cmd.Flags().DurationVar(&in, "in", 0, "Fire once after this delay")
	cmd.Flags().StringVar(&at, "at", "", "Fire once at this local time (YYYY-MM-DD HH:MM:SS)")
	cmd.MarkFlagsMutuallyExclusive("every", "in", "at")
	return cmd
}

func remindersCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reminders",
		Aliases: []string{"reminder"},
		Short:   "Inspect and manage reminders",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				rs, err := rt.Engine.List(ctx, g.ownerFor(rt), all)
				if err != nil {
					return err
				}
				return printReminders(cmd.OutOrStdout(), rs)
			})
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "Include fired one-time reminders")

	cancel := &cobra.Command{
		Use:   "cancel <id | text>",
		Short: `Cancel by ID or by request ("cancel my water reminder")`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					found, err := rt.Engine.Cancel(ctx, args[0])
					if err != nil {
						return err
					}
					if found {
						fmt.Fprintf(out, "Cancelled %s\n", args[0])
						return nil
					}
				}

				res, ok, err := rt.Engine.CancelFromText(ctx, g.ownerFor(rt), strings.Join(args, " "))
				switch {
				case err != nil:
					return err
				case !ok:
					return fmt.Errorf("no matching reminder")
				case res.All:
					fmt.Fprintf(out, "Cancelled %d reminders\n", res.Count)
				default:
					fmt.Fprintf(out, "Cancelled %q (%s)\n", res.Reminder.Message, res.Reminder.ID)
				}
				return nil
			})
		},
	}

	cancelAll := &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every reminder of the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				n, err := rt.Engine.CancelAll(ctx, g.ownerFor(rt))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %d reminders\n", n)
				return nil
			})
		},
	}

	var minutes int
	snooze := &cobra.Command{
		Use:   "snooze <id>",
		Short: "Push a reminder's next trigger into the future",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				r, ok, err := rt.Engine.Snooze(ctx, args[0], minutes)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("reminder %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Snoozed %s\n", describe(r))
				return nil
			})
		},
	}
	snooze.Flags().IntVarP(&minutes, "minutes", "m", 0, "Snooze length in minutes (default: reminders.snooze)")

	trigger := &cobra.Command{
		Use:   "trigger <id>",
		Short: "Fire a reminder now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				r, fired, err := rt.Engine.Trigger(ctx, args[0])
				if err != nil {
					return err
				}
				if !fired {
					return fmt.Errorf("reminder %s not found or inactive", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fired %s\n", describe(r))
				return nil
			})
		},
	}

	cmd.AddCommand(list, cancel, cancelAll, snooze, trigger)
	return cmd
}

func printReminders(w io.Writer, rs []reminder.Reminder) error {
	if len(rs) == 0 {
		_, err := fmt.Fprintln(w, "No reminders.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMESSAGE\tSCHEDULE\tNEXT\tACTIVE")
	for _, r := range rs {
		schedule := "once"
		if r.Kind == reminder.KindRecurring {
			schedule = "every " + r.Interval.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
			r.ID, r.Message, schedule, r.NextTrigger.Local().Format(time.DateTime), r.Active)
	}
	return tw.Flush()
}

func describe(r reminder.Reminder) string {
	next := r.NextTrigger.Local().Format(time.DateTime)
	if r.Kind == reminder.KindRecurring {
		return fmt.Sprintf("%q every %s, next at %s (%s)", r.Message, r.Interval, next, r.ID)
	}
	return fmt.Sprintf("%q at %s (%s)", r.Message, next, r.ID)
}
