// Package persistence archives event log entries to SQLite. The archive is
// a journal: it never restores town state.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/butterfly-city/internal/engine"
)

// Archive wraps a SQLite connection holding archived events.
type Archive struct {
	conn    *sqlx.DB
	session string
}

// Open opens or creates an archive at the given path. Each Open starts a new
// session; event IDs are only unique within a session.
func Open(path string) (*Archive, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	a := &Archive{conn: conn, session: uuid.NewString()}
	if err := a.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("event archive opened", "path", path, "session", a.session)
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

// Session identifies the events written through this handle.
func (a *Archive) Session() string {
	return a.session
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ts INTEGER NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archive_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session, seq);
	`
	_, err := a.conn.Exec(schema)
	return err
}

type eventRow struct {
	Session     string `db:"session"`
	Seq         uint64 `db:"seq"`
	TS          int64  `db:"ts"`
	Type        string `db:"type"`
	Description string `db:"description"`
	Metadata    string `db:"metadata_json"`
}

func (r eventRow) event() (engine.Event, error) {
	e := engine.Event{
		ID:          r.Seq,
		Timestamp:   time.UnixMilli(r.TS),
		Type:        engine.EventType(r.Type),
		Description: r.Description,
		Metadata:    map[string]any{},
	}
	if err := json.Unmarshal([]byte(r.Metadata), &e.Metadata); err != nil {
		return engine.Event{}, fmt.Errorf("decode metadata for event %d: %w", r.Seq, err)
	}
	return e, nil
}

// Record archives one event. It has the engine.Listener signature so it can
// subscribe to an event log directly.
func (a *Archive) Record(e engine.Event) error {
	return a.SaveEvents([]engine.Event{e})
}

// SaveEvents appends events to the archive.
func (a *Archive) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := a.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for event %d: %w", e.ID, err)
		}
		if e.Metadata == nil {
			meta = []byte("{}")
		}
		_, err = tx.Exec(
			"INSERT INTO events (session, seq, ts, type, description, metadata_json) VALUES (?, ?, ?, ?, ?, ?)",
			a.session, e.ID, e.Timestamp.UnixMilli(), string(e.Type), e.Description, string(meta),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit of the most recently archived events across all
// sessions, oldest first.
func (a *Archive) Recent(limit int) ([]engine.Event, error) {
	if limit <= 0 {
		return []engine.Event{}, nil
	}
	var rows []eventRow
	err := a.conn.Select(&rows, `
		SELECT session, seq, ts, type, description, metadata_json FROM (
			SELECT * FROM events ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	out := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Count returns the number of archived events.
func (a *Archive) Count() (int, error) {
	var n int
	err := a.conn.Get(&n, "SELECT COUNT(*) FROM events")
	return n, err
}

// ErrNoMeta is returned by GetMeta for a missing key.
var ErrNoMeta = errors.New("archive meta key not found")

// SaveMeta stores a key-value pair in archive metadata.
func (a *Archive) SaveMeta(key, value string) error {
	_, err := a.conn.Exec(
		"INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (a *Archive) GetMeta(key string) (string, error) {
	var values []string
	if err := a.conn.Select(&values, "SELECT value FROM archive_meta WHERE key = ?", key); err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoMeta, key)
	}
	return values[0], nil
}
