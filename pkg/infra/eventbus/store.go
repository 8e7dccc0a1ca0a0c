package eventbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type EventStore interface {
	Save(ctx context.Context, event Event) error
	Query(ctx context.Context, filter EventQueryFilter) ([]Event, error)
}

type EventQueryFilter struct {
	Domain        string
	Type          string
	CorrelationID string
	StartTime     time.Time
	EndTime       time.Time
	Limit         int
}

type storedEvent struct {
	id            string
	eventType     string
	domain        string
	correlationID string
	payload       []byte
	timestamp     time.Time
}

func (e *storedEvent) ID() string            { return e.id }
func (e *storedEvent) Type() string          { return e.eventType }
func (e *storedEvent) Domain() string        { return e.domain }
func (e *storedEvent) Payload() any          { return json.RawMessage(e.payload) }
func (e *storedEvent) Timestamp() time.Time  { return e.timestamp }
func (e *storedEvent) CorrelationID() string { return e.correlationID }

var _ Event = (*storedEvent)(nil)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	domain TEXT NOT NULL,
	correlation_id TEXT,
	payload BLOB,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_correlation ON events(correlation_id);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`

// SQLiteEventStore journals events in a single SQLite table. Timestamps
// are stored with nanosecond precision.
type SQLiteEventStore struct {
	db *sql.DB
}

// OpenSQLiteEventStore opens (creating if needed) the journal at path.
func OpenSQLiteEventStore(path string) (*SQLiteEventStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps an in-memory database shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(eventsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteEventStore{db: db}, nil
}

func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteEventStore) Save(ctx context.Context, event Event) error {
	return s.SaveBatch(ctx, []Event{event})
}

func (s *SQLiteEventStore) SaveBatch(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, type, domain, correlation_id, payload, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		payload, err := json.Marshal(event.Payload())
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}

		_, err = stmt.ExecContext(ctx, generateID(), event.Type(), event.Domain(),
			event.CorrelationID(), payload, event.Timestamp().UnixNano())
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Query returns matching events, newest first.
func (s *SQLiteEventStore) Query(ctx context.Context, filter EventQueryFilter) ([]Event, error) {
	query := "SELECT id, type, domain, correlation_id, payload, timestamp FROM events WHERE 1=1"
	args := []any{}

	if filter.Domain != "" {
		query += " AND domain = ?"
		args = append(args, filter.Domain)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.CorrelationID != "" {
		query += " AND correlation_id = ?"
		args = append(args, filter.CorrelationID)
	}
	if !filter.StartTime.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime.UnixNano())
	}
	if !filter.EndTime.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime.UnixNano())
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e storedEvent
		var ts int64
		if err := rows.Scan(&e.id, &e.eventType, &e.domain, &e.correlationID, &e.payload, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.timestamp = time.Unix(0, ts)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
