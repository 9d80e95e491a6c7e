package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the canonical durable ledger storage.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the ledger database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process engine. Use one shared connection to avoid writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL,
			data_json TEXT NOT NULL DEFAULT '{}',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ledger_events_agg_version ON ledger_events(aggregate_id, version);`,
		`CREATE INDEX IF NOT EXISTS ledger_events_agg_idx ON ledger_events(aggregate_id, version ASC);`,
		`CREATE INDEX IF NOT EXISTS ledger_events_type_idx ON ledger_events(event_type, created_at_ms DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(stmt string) string {
	line := strings.TrimSpace(stmt)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev Event) error {
	data, err := encodePayload(ev.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO ledger_events(id, event_type, aggregate_id, aggregate_type, user_id, version, data_json, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Type, ev.AggID, ev.AggType, ev.UserID, ev.Version, string(data), ev.Timestamp.UnixMilli())
	if err != nil {
		// The (aggregate_id, version) unique index is the conflict-detection
		// primitive for concurrent appends to one aggregate.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrVersionConflict
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) EventsFor(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_type, aggregate_id, aggregate_type, user_id, version, data_json, created_at_ms
FROM ledger_events WHERE aggregate_id = ? AND version >= ? ORDER BY version ASC`, aggregateID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) LatestVersion(ctx context.Context, aggregateID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(version), 0) FROM ledger_events WHERE aggregate_id = ?`, aggregateID)
	var v int
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("latest version: %w", err)
	}
	return v, nil
}

// AllEvents returns every stored event ordered by aggregate then version.
// Used by replay.
func (s *SQLiteStore) AllEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_type, aggregate_id, aggregate_type, user_id, version, data_json, created_at_ms
FROM ledger_events ORDER BY aggregate_id ASC, version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query all events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var ev Event
		var data string
		var createdMS int64
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.AggID, &ev.AggType, &ev.UserID, &ev.Version, &data, &createdMS); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		payload, err := decodePayload(ev.Type, ev.AggID, ev.AggType, ev.UserID, []byte(data))
		if err != nil {
			return nil, err
		}
		ev.Data = payload
		ev.Timestamp = time.UnixMilli(createdMS)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
