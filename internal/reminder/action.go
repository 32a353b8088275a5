package reminder

import (
	"context"
	"fmt"
	"strings"
)

// Action is a user response to a fired reminder notification.
type Action int

// Supported actions.
const (
	ActionDismiss Action = iota + 1
	ActionSnooze
	ActionCancel
	ActionTrigger
)

var actionNames = map[Action]string{
	ActionDismiss: "dismiss",
	ActionSnooze:  "snooze",
	ActionCancel:  "cancel",
	ActionTrigger: "trigger",
}

// String returns the lowercase action name.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if _, ok := actionNames[a]; !ok {
		return nil, fmt.Errorf("reminder: unknown action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts an action name to an Action.
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("reminder: unknown action %q", s)
}

// DefaultActions are offered with every notification.
var DefaultActions = []Action{ActionDismiss, ActionSnooze, ActionCancel}

// Command is a typed request against one reminder.
type Command struct {
	Action     Action `json:"action"`
	ReminderID string `json:"reminder_id"`
	// Minutes applies to ActionSnooze; zero selects the engine default.
	Minutes int `json:"minutes,omitempty"`
}

// HandleAction dispatches cmd to the matching engine operation. It
// reports whether the reminder existed.
func (e *Engine) HandleAction(ctx context.Context, cmd Command) (bool, error) {
	if cmd.ReminderID == "" {
		return false, fmt.Errorf("reminder: action %s: missing reminder id", cmd.Action)
	}

	switch cmd.Action {
	case ActionDismiss:
		return e.dismiss(ctx, cmd.ReminderID)
	case ActionSnooze:
		_, ok, err := e.Snooze(ctx, cmd.ReminderID, cmd.Minutes)
		return ok, err
	case ActionCancel:
		return e.Cancel(ctx, cmd.ReminderID)
	case ActionTrigger:
		_, ok, err := e.Trigger(ctx, cmd.ReminderID)
		return ok, err
	default:
		return false, fmt.Errorf("reminder: unsupported action %s", cmd.Action)
	}
}

// dismiss acknowledges a notification. The schedule is left as is.
func (e *Engine) dismiss(ctx context.Context, id string) (bool, error) {
	_, ok, err := e.store.GetReminder(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reminder: dismiss %s: %w", id, err)
	}
	if ok {
		e.logger.Debug("reminder dismissed", "reminder_id", id)
	}
	return ok, nil
}
