// Package journal records operation lifecycle transitions.
//
// The operation engine appends an Entry whenever an operation is executed,
// fails, or is undone. The journal is an audit trail: it is written after
// the fact and its failures never affect the operation itself.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
)

// Version is the current entry format version.
const Version = 1

// Transition is an operation lifecycle change.
type Transition string

// Recorded transitions.
const (
	Executed Transition = "executed"
	Failed   Transition = "failed"
	Undone   Transition = "undone"
)

// Entry is one journaled transition.
type Entry struct {
	Version     int            `json:"version"`
	Sequence    int64          `json:"sequence"`
	OperationID string         `json:"operation_id"`
	Kind        string         `json:"kind"`
	Transition  Transition     `json:"transition"`
	EntityKind  string         `json:"entity_kind,omitempty"`
	EntityID    string         `json:"entity_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Payload     map[string]any `json:"payload,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Marshal serializes an entry to JSON.
func (e *Entry) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal deserializes an entry from JSON.
func Unmarshal(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Store persists journal entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores e and returns it with its sequence assigned.
	Append(e Entry) (Entry, error)

	// List returns the entries of one operation ordered by sequence, or
	// every entry when operationID is empty.
	List(operationID string) ([]Entry, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for journal operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")
)

// Open returns the store selected by s.
func Open(s config.JournalSettings) (Store, error) {
	switch s.Driver {
	case config.JournalNone:
		return NopStore{}, nil
	case "", config.JournalMemory:
		return NewMemoryStore(), nil
	case config.JournalSQLite:
		return NewSQLiteStore(s.Path)
	}
	return nil, fmt.Errorf("unknown journal driver %q", s.Driver)
}

// NopStore discards every entry.
type NopStore struct{}

// Append implements Store.
func (NopStore) Append(e Entry) (Entry, error) { return e, nil }

// List implements Store.
func (NopStore) List(string) ([]Entry, error) { return nil, nil }

// Close implements Store.
func (NopStore) Close() error { return nil }
