package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/reminder"
)

// timeFormat is fixed width so that stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store implements reminder.Store and memory.Store on one database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	dims   int
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// --- reminders ---

const reminderColumns = `id, owner, message, kind, interval_ms, scheduled_at, next_trigger, active, triggered_at, created_at`

// SaveReminder implements reminder.Store.
func (s *Store) SaveReminder(ctx context.Context, r reminder.Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Owner, r.Message, string(r.Kind),
		r.Interval.Milliseconds(),
		formatTime(r.ScheduledAt),
		formatTime(r.NextTrigger),
		r.Active,
		formatTime(r.TriggeredAt),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save reminder %s: %w", r.ID, err)
	}
	return nil
}

// GetReminder implements reminder.Store.
func (s *Store) GetReminder(ctx context.Context, id string) (reminder.Reminder, bool, error) {
	rs, err := s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	if err != nil {
		return reminder.Reminder{}, false, err
	}
	if len(rs) == 0 {
		return reminder.Reminder{}, false, nil
	}
	return rs[0], true, nil
}

// ListActiveReminders implements reminder.Store.
func (s *Store) ListActiveReminders(ctx context.Context, owner string) ([]reminder.Reminder, error) {
	if owner == "" {
		return s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders
			WHERE active = 1 ORDER BY created_at, id`)
	}
	return s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders
		WHERE owner = ? AND active = 1 ORDER BY created_at, id`, owner)
}

// ListReminders implements reminder.Store.
func (s *Store) ListReminders(ctx context.Context, owner string) ([]reminder.Reminder, error) {
	if owner == "" {
		return s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY created_at, id`)
	}
	return s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders
		WHERE owner = ? ORDER BY created_at, id`, owner)
}

// ListDueReminders returns active reminders whose next trigger is at or
// before the given time, soonest first.
func (s *Store) ListDueReminders(ctx context.Context, before time.Time) ([]reminder.Reminder, error) {
	return s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders
		WHERE active = 1 AND next_trigger <= ? ORDER BY next_trigger, id`, formatTime(before))
}

// DeleteReminder implements reminder.Store.
func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id); err != nil {
		return fmt.Errorf("sqlite: delete reminder %s: %w", id, err)
	}
	return nil
}

// DeleteAllReminders implements reminder.Store.
func (s *Store) DeleteAllReminders(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE owner = ?", owner); err != nil {
		return fmt.Errorf("sqlite: delete reminders for %s: %w", owner, err)
	}
	return nil
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []reminder.Reminder
	for rows.Next() {
		var (
			r                                              reminder.Reminder
			kind, scheduled, next, triggered, createdAtStr string
			intervalMS                                     int64
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Message, &kind, &intervalMS,
			&scheduled, &next, &r.Active, &triggered, &createdAtStr); err != nil {
			return nil, fmt.Errorf("sqlite: scan reminder: %w", err)
		}
		if s.decodeReminder(&r, kind, intervalMS, scheduled, next, triggered, createdAtStr) {
			out = append(out, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan reminder rows: %w", err)
	}
	return out, nil
}

// decodeReminder fills the typed fields of r. Rows whose kind or
// required timestamps cannot be read are skipped; broken optional
// timestamps are treated as absent.
func (s *Store) decodeReminder(r *reminder.Reminder, kind string, intervalMS int64, scheduled, next, triggered, created string) bool {
	k, err := reminder.ParseKind(kind)
	if err != nil {
		s.logger.Warn("sqlite: skipping reminder with unknown kind", "reminder_id", r.ID, "kind", kind)
		return false
	}
	r.Kind = k
	r.Interval = time.Duration(intervalMS) * time.Millisecond

	if r.NextTrigger, err = parseTime(next); err != nil || r.NextTrigger.IsZero() {
		s.logger.Warn("sqlite: skipping reminder with unreadable next_trigger", "reminder_id", r.ID, "value", next)
		return false
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		s.logger.Warn("sqlite: skipping reminder with unreadable created_at", "reminder_id", r.ID, "value", created)
		return false
	}
	if r.ScheduledAt, err = parseTime(scheduled); err != nil {
		s.logger.Warn("sqlite: ignoring corrupt scheduled_at", "reminder_id", r.ID, "value", scheduled)
		r.ScheduledAt = time.Time{}
	}
	if r.TriggeredAt, err = parseTime(triggered); err != nil {
		s.logger.Warn("sqlite: ignoring corrupt triggered_at", "reminder_id", r.ID, "value", triggered)
		r.TriggeredAt = time.Time{}
	}
	return true
}

// --- memories ---

const memoryColumns = `id, owner, content, embedding, metadata, created_at`

// SaveMemory implements memory.Store.
func (s *Store) SaveMemory(ctx context.Context, m memory.Memory) error {
	var embJSON, metaJSON string
	if len(m.Embedding) > 0 {
		b, err := json.Marshal(m.Embedding)
		if err != nil {
			return fmt.Errorf("sqlite: marshal embedding: %w", err)
		}
		embJSON = string(b)
	}
	if len(m.Metadata) > 0 {
		b, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: marshal metadata: %w", err)
		}
		metaJSON = string(b)
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Owner, m.Content, embJSON, metaJSON, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save memory %s: %w", m.ID, err)
	}
	return nil
}

// ListMemories implements memory.Store.
func (s *Store) ListMemories(ctx context.Context, owner string) ([]memory.Memory, error) {
	return s.queryMemories(ctx, `SELECT `+memoryColumns+` FROM memories
		WHERE owner = ? ORDER BY created_at, id`, owner)
}

// ListUnembedded implements memory.Store. Rows holding vectors of the
// wrong length or corrupt JSON count as unembedded.
func (s *Store) ListUnembedded(ctx context.Context, limit int) ([]memory.Memory, error) {
	rows, err := s.queryMemories(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	var out []memory.Memory
	for _, m := range rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		if len(m.Embedding) == 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteMemory implements memory.Store.
func (s *Store) DeleteMemory(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete memory %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteAllMemories implements memory.Store.
func (s *Store) DeleteAllMemories(ctx context.Context, owner string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE owner = ?", owner)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete memories for %s: %w", owner, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Store) queryMemories(ctx context.Context, query string, args ...any) ([]memory.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []memory.Memory
	for rows.Next() {
		var (
			m                          memory.Memory
			embJSON, metaJSON, created string
		)
		if err := rows.Scan(&m.ID, &m.Owner, &m.Content, &embJSON, &metaJSON, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}
		m.Embedding = s.decodeEmbedding(m.ID, embJSON)
		m.Metadata = s.decodeMetadata(m.ID, metaJSON)
		t, err := parseTime(created)
		if err != nil {
			s.logger.Warn("sqlite: ignoring corrupt created_at", "memory_id", m.ID, "value", created)
		}
		m.CreatedAt = t
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan memory rows: %w", err)
	}
	return out, nil
}

// decodeEmbedding returns nil for empty, corrupt, or wrong-length data.
func (s *Store) decodeEmbedding(id, raw string) []float32 {
	if raw == "" || raw == "null" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		s.logger.Warn("sqlite: ignoring corrupt embedding", "memory_id", id, "error", err)
		return nil
	}
	if s.dims > 0 && len(vec) != s.dims {
		s.logger.Warn("sqlite: ignoring embedding with wrong dimension",
			"memory_id", id,
			"got", len(vec),
			"want", s.dims,
		)
		return nil
	}
	return vec
}

// decodeMetadata returns nil for empty or corrupt data.
func (s *Store) decodeMetadata(id, raw string) map[string]string {
	if raw == "" || raw == "null" || raw == "{}" {
		return nil
	}
	var md map[string]string
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		s.logger.Warn("sqlite: ignoring corrupt metadata", "memory_id", id, "error", err)
		return nil
	}
	return md
}
