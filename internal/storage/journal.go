package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/caelum0x/hyperliqbot-sub001/internal/event"
)

// Sink receives lifecycle events for the durable audit trail.
type Sink interface {
	Append(ctx context.Context, ev event.Event) error
}

// NopSink discards events. Used when the journal is disabled and in tests.
type NopSink struct{}

func (NopSink) Append(context.Context, event.Event) error { return nil }

// Journal persists grid lifecycle events in SQLite. Single writer; the
// supervisor is the only appender.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal database with WAL mode.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS grid_events (
			id INTEGER PRIMARY KEY,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create grid_events table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Append stores one event.
func (j *Journal) Append(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO grid_events (id, type, ts, payload) VALUES (?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs().UnixMicro(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// StoredEvent is one journal row as read back.
type StoredEvent struct {
	Seq     uint64
	Type    event.Type
	TsMicro int64
	Payload []byte
}

// Load returns all events with seq >= fromSeq in order.
func (j *Journal) Load(ctx context.Context, fromSeq uint64) ([]StoredEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, type, ts, payload FROM grid_events WHERE id >= ? ORDER BY id ASC", fromSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.Seq, &ev.Type, &ev.TsMicro, &ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastSeq returns the highest stored sequence number, 0 when empty.
func (j *Journal) LastSeq(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	err := j.db.QueryRowContext(ctx, "SELECT MAX(id) FROM grid_events").Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
