package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/mnemo/internal/reminder"
)

// createReminderRequest is the body of POST /api/reminders. Either Text
// (parsed like a spoken request) or Message with Kind and its parameter
// is required.
type createReminderRequest struct {
	Owner           string    `json:"owner"`
	Text            string    `json:"text"`
	Message         string    `json:"message"`
	Kind            string    `json:"kind"`
	IntervalMinutes int       `json:"interval_minutes"`
	At              time.Time `json:"at"`
}

type cancelTextRequest struct {
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

type countResponse struct {
	Count int `json:"count"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (g *Gateway) handleListReminders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
		list, err := g.reminders.List(r.Context(), g.ownerOf(r.URL.Query().Get("owner")), all)
		if err != nil {
			g.internalError(w, "list reminders", err)
			return
		}
		if list == nil {
			list = []reminder.Reminder{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (g *Gateway) handleCreateReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReminderRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		owner := g.ownerOf(req.Owner)

		var (
			rem reminder.Reminder
			err error
		)
		switch {
		case req.Text != "":
			rem, err = g.reminders.CreateFromText(r.Context(), owner, req.Text)
		case req.Message != "":
			kind, kerr := reminder.ParseKind(req.Kind)
			if kerr != nil {
				writeError(w, http.StatusBadRequest, kerr.Error())
				return
			}
			rem, err = g.reminders.Create(r.Context(), owner, req.Message, kind, reminder.Params{
				Interval: time.Duration(req.IntervalMinutes) * time.Minute,
				At:       req.At,
			})
		default:
			writeError(w, http.StatusBadRequest, "text or message is required")
			return
		}

		if errors.Is(err, reminder.ErrInvalidConfiguration) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			g.internalError(w, "create reminder", err)
			return
		}
		writeJSON(w, http.StatusCreated, rem)
	}
}

func (g *Gateway) handleGetReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rem, ok, err := g.reminders.Get(r.Context(), chi.URLParam(r, "id"))
		g.writeReminder(w, "get reminder", rem, ok, err)
	}
}

func (g *Gateway) handleCancelReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := g.reminders.Cancel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			g.internalError(w, "cancel reminder", err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleCancelAllReminders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := g.reminders.CancelAll(r.Context(), g.ownerOf(r.URL.Query().Get("owner")))
		if err != nil {
			g.internalError(w, "cancel all reminders", err)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{Count: n})
	}
}

func (g *Gateway) handleCancelReminderByText() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelTextRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		res, ok, err := g.reminders.CancelFromText(r.Context(), g.ownerOf(req.Owner), req.Text)
		if err != nil {
			g.internalError(w, "cancel reminder by text", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "no matching reminder")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (g *Gateway) handleSnoozeReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req snoozeRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Minutes < 0 {
			writeError(w, http.StatusBadRequest, "minutes must be non-negative")
			return
		}
		rem, ok, err := g.reminders.Snooze(r.Context(), chi.URLParam(r, "id"), req.Minutes)
		g.writeReminder(w, "snooze reminder", rem, ok, err)
	}
}

func (g *Gateway) handleTriggerReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rem, ok, err := g.reminders.Trigger(r.Context(), chi.URLParam(r, "id"))
		g.writeReminder(w, "trigger reminder", rem, ok, err)
	}
}

// handleReminderAction serves the buttons of a notification. Snooze
// reads an optional minutes query parameter.
func (g *Gateway) handleReminderAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, err := reminder.ParseAction(chi.URLParam(r, "action"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cmd := reminder.Command{Action: action, ReminderID: chi.URLParam(r, "id")}
		if m := r.URL.Query().Get("minutes"); m != "" {
			if cmd.Minutes, err = strconv.Atoi(m); err != nil || cmd.Minutes < 0 {
				writeError(w, http.StatusBadRequest, "minutes must be a non-negative integer")
				return
			}
		}

		found, err := g.reminders.HandleAction(r.Context(), cmd)
		if err != nil {
			g.internalError(w, "reminder action", err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func (g *Gateway) writeReminder(w http.ResponseWriter, op string, rem reminder.Reminder, ok bool, err error) {
	if err != nil {
		g.internalError(w, op, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (g *Gateway) internalError(w http.ResponseWriter, op string, err error) {
	g.logger.Error("gateway: "+op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
