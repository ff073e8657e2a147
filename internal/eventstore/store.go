// Package eventstore provides an optional durable audit log for events
// published on the event bus, backed by sqlite. Two driver backends
// are supported: "modernc" (modernc.org/sqlite, the default, no cgo
// required) and "mattn" (github.com/mattn/go-sqlite3, cgo, used where
// the host toolchain already pays the cgo cost for other reasons).
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arolang/aro/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	type         TEXT NOT NULL,
	payload      TEXT NOT NULL,
	published_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_published_at ON events(published_at);
`

// Record is one durably logged event.
type Record struct {
	ID          int64
	Type        string
	Payload     string
	PublishedAt time.Time
}

// Store durably records events published on the bus and answers
// replay/audit queries over them.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite-backed event store using
// the named driver ("modernc" or "mattn") at path, and applies the
// schema.
func Open(driver, path string) (*Store, error) {
	driverName, dsn, err := driverAndDSN(driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply event store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append durably records e. Payload is JSON-marshaled; a payload that
// does not marshal is recorded as its %v string instead of failing the
// append, since an audit log must never be the reason a publish fails.
func (s *Store) Append(e event.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", e.Payload)))
	}
	_, err = s.db.Exec(
		`INSERT INTO events (type, payload, published_at) VALUES (?, ?, ?)`,
		e.Type, string(payload), e.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Subscriber returns an event.Handler suitable for event.Bus.Subscribe
// with eventType "*", logging every append failure rather than
// propagating it: a handler registered on the bus cannot return an
// error, and a dropped audit record must never take the bus down with
// it.
func (s *Store) Subscriber(onError func(error)) event.Handler {
	return func(e event.Event) {
		if err := s.Append(e); err != nil && onError != nil {
			onError(err)
		}
	}
}

// Since returns every recorded event with PublishedAt >= from, ordered
// oldest first.
func (s *Store) Since(ctx context.Context, from time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, payload, published_at FROM events WHERE published_at >= ? ORDER BY id ASC`,
		from)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Type, &r.Payload, &r.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of recorded events.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func driverAndDSN(driver, path string) (string, string, error) {
	switch driver {
	case "", "modernc":
		return "sqlite", path + "?_pragma=journal_mode(WAL)", nil
	case "mattn":
		return "sqlite3", path + "?_journal_mode=WAL", nil
	default:
		return "", "", fmt.Errorf("unknown event store driver %q, expected \"modernc\" or \"mattn\"", driver)
	}
}
