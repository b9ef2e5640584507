package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists the journal to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite journal.
// The path should be a file path (e.g., "./journal.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS journal (
			sequence INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			transition TEXT NOT NULL,
			entity_kind TEXT NOT NULL DEFAULT '',
			entity_id TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL,
			payload BLOB,
			error TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_journal_operation_id
		ON journal(operation_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, ErrStoreClosed
	}

	e.Version = Version
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	var payload []byte
	if len(e.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(e.Payload); err != nil {
			return Entry{}, fmt.Errorf("encode payload: %w", err)
		}
	}

	res, err := s.db.Exec(`
		INSERT INTO journal (operation_id, kind, transition, entity_kind, entity_id, timestamp, payload, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.OperationID, e.Kind, string(e.Transition), e.EntityKind, e.EntityID,
		e.Timestamp.UTC().Format(time.RFC3339Nano), payload, e.Error)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}
	if e.Sequence, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("read sequence: %w", err)
	}
	return e, nil
}

// List implements Store.
func (s *SQLiteStore) List(operationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT sequence, operation_id, kind, transition, entity_kind, entity_id, timestamp, payload, error
		FROM journal`
	var args []any
	if operationID != "" {
		query += ` WHERE operation_id = ?`
		args = append(args, operationID)
	}
	query += ` ORDER BY sequence`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			transition string
			timestamp  string
			payload    []byte
		)
		if err := rows.Scan(&e.Sequence, &e.OperationID, &e.Kind, &transition,
			&e.EntityKind, &e.EntityID, &timestamp, &payload, &e.Error); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Version = Version
		e.Transition = Transition(transition)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of entry %d: %w", e.Sequence, err)
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
