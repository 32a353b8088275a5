package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/mnemo/internal/reminder"
)

func remindTool() mcp.Tool {
	return mcp.NewTool("mnemo_remind",
		mcp.WithDescription("Schedule a reminder. Either pass the user's request as text "+
			"(\"remind me to stretch every 30 minutes\") or a message with every_minutes or in_minutes."),
		mcp.WithString("text",
			mcp.Description("A natural-language reminder request."),
		),
		mcp.WithString("message",
			mcp.Description("What to remind about, when not using text."),
		),
		mcp.WithNumber("every_minutes",
			mcp.Description("Repeat interval in minutes for a recurring reminder."),
		),
		mcp.WithNumber("in_minutes",
			mcp.Description("Delay in minutes for a one-time reminder."),
		),
	)
}

func listRemindersTool() mcp.Tool {
	return mcp.NewTool("mnemo_list_reminders",
		mcp.WithDescription("List the user's reminders with their IDs and next trigger time."),
		mcp.WithBoolean("include_inactive",
			mcp.Description("Also list one-time reminders that already fired. Default: false"),
		),
	)
}

func cancelReminderTool() mcp.Tool {
	return mcp.NewTool("mnemo_cancel_reminder",
		mcp.WithDescription("Cancel a reminder by ID, or by a request such as \"cancel my water reminder\" or \"cancel all my reminders\"."),
		mcp.WithString("id",
			mcp.Description("The reminder ID."),
		),
		mcp.WithString("text",
			mcp.Description("A natural-language cancel request."),
		),
	)
}

func snoozeReminderTool() mcp.Tool {
	return mcp.NewTool("mnemo_snooze_reminder",
		mcp.WithDescription("Push a reminder's next trigger into the future."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The reminder ID."),
		),
		mcp.WithNumber("minutes",
			mcp.Description("How long to snooze. Default: the configured snooze duration."),
		),
	)
}

func (s *Server) handleRemind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		r   reminder.Reminder
		err error
	)
	text := strings.TrimSpace(req.GetString("text", ""))
	message := strings.TrimSpace(req.GetString("message", ""))
	every := req.GetInt("every_minutes", 0)
	in := req.GetInt("in_minutes", 0)

	switch {
	case text != "":
		r, err = s.reminders.CreateFromText(ctx, s.owner, text)
	case message != "" && every > 0:
		r, err = s.reminders.Create(ctx, s.owner, message, reminder.KindRecurring, reminder.Params{
			Interval: time.Duration(every) * time.Minute,
		})
	case message != "" && in > 0:
		r, err = s.reminders.Create(ctx, s.owner, message, reminder.KindOneTime, reminder.Params{
			At: s.now().Add(time.Duration(in) * time.Minute),
		})
	default:
		return mcp.NewToolResultError("provide text, or message with every_minutes or in_minutes"), nil
	}

	if errors.Is(err, reminder.ErrInvalidConfiguration) {
		return mcp.NewToolResultError(fmt.Sprintf("could not schedule: %v", err)), nil
	}
	if err != nil {
		s.logger.Error("mcp: create reminder failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to schedule reminder: %v", err)), nil
	}
	return mcp.NewToolResultText("Scheduled " + describe(r)), nil
}

func (s *Server) handleListReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.reminders.List(ctx, s.owner, req.GetBool("include_inactive", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No reminders."), nil
	}
	var b strings.Builder
	for _, r := range list {
		b.WriteString("- ")
		b.WriteString(describe(r))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleCancelReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("id", ""); id != "" {
		found, err := s.reminders.Cancel(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to cancel: %v", err)), nil
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("no reminder with id %s", id)), nil
		}
		return mcp.NewToolResultText("Cancelled."), nil
	}

	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("provide id or text"), nil
	}
	res, ok, err := s.reminders.CancelFromText(ctx, s.owner, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to cancel: %v", err)), nil
	}
	switch {
	case !ok:
		return mcp.NewToolResultText("No matching reminder."), nil
	case res.All:
		return mcp.NewToolResultText(fmt.Sprintf("Cancelled %d reminders.", res.Count)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Cancelled %q.", res.Reminder.Message)), nil
	}
}

func (s *Server) handleSnoozeReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	minutes := req.GetInt("minutes", 0)
	if minutes < 0 {
		return mcp.NewToolResultError("minutes must be non-negative"), nil
	}

	r, ok, err := s.reminders.Snooze(ctx, id, minutes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to snooze: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no reminder with id %s", id)), nil
	}
	return mcp.NewToolResultText("Snoozed " + describe(r)), nil
}

// describe renders a reminder on one line.
func describe(r reminder.Reminder) string {
	when := r.NextTrigger.Format(time.RFC3339)
	switch {
	case !r.Active:
		return fmt.Sprintf("%q (id %s, done)", r.Message, r.ID)
	case r.Kind == reminder.KindRecurring:
		return fmt.Sprintf("%q every %s (id %s, next %s)", r.Message, r.Interval, r.ID, when)
	default:
		return fmt.Sprintf("%q (id %s, at %s)", r.Message, r.ID, when)
	}
}
