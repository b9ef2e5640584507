package journal_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
)

func stores(t *testing.T) map[string]journal.Store {
	t.Helper()
	sqlite, err := journal.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]journal.Store{
		"memory": journal.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_AppendAndList(t *testing.T) {
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first, err := store.Append(journal.Entry{
				OperationID: "op-1",
				Kind:        "trip.create",
				Transition:  journal.Executed,
				EntityKind:  "trip",
				EntityID:    "t1",
				Timestamp:   at,
				Payload:     map[string]any{"destination": "Lisbon"},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), first.Sequence)
			assert.Equal(t, journal.Version, first.Version)

			_, err = store.Append(journal.Entry{OperationID: "op-2", Kind: "trip.create", Transition: journal.Failed, Error: "boom"})
			require.NoError(t, err)
			_, err = store.Append(journal.Entry{OperationID: "op-1", Kind: "trip.create", Transition: journal.Undone})
			require.NoError(t, err)

			op1, err := store.List("op-1")
			require.NoError(t, err)
			require.Len(t, op1, 2)
			assert.Equal(t, journal.Executed, op1[0].Transition)
			assert.Equal(t, journal.Undone, op1[1].Transition)
			assert.Equal(t, "Lisbon", op1[0].Payload["destination"])
			assert.True(t, at.Equal(op1[0].Timestamp))
			assert.Less(t, op1[0].Sequence, op1[1].Sequence)

			all, err := store.List("")
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "boom", all[1].Error)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Close())
			assert.NoError(t, store.Close())

			_, err := store.Append(journal.Entry{OperationID: "op"})
			assert.ErrorIs(t, err, journal.ErrStoreClosed)
			_, err = store.List("")
			assert.ErrorIs(t, err, journal.ErrStoreClosed)
		})
	}
}

func TestStore_Concurrent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			const n = 20
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Append(journal.Entry{OperationID: "op", Kind: "k", Transition: journal.Executed})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			all, err := store.List("op")
			require.NoError(t, err)
			assert.Len(t, all, n)
		})
	}
}

func TestMemoryStore_CopiesPayload(t *testing.T) {
	store := journal.NewMemoryStore()
	payload := map[string]any{"k": "v"}
	_, err := store.Append(journal.Entry{OperationID: "op", Payload: payload})
	require.NoError(t, err)
	payload["k"] = "changed"

	got, err := store.List("op")
	require.NoError(t, err)
	assert.Equal(t, "v", got[0].Payload["k"])
	assert.Equal(t, 1, store.Len())
}

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	store1, err := journal.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	_, err = store1.Append(journal.Entry{OperationID: "op-1", Kind: "user.create", Transition: journal.Executed})
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := journal.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	entries, err := store2.List("op-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user.create", entries[0].Kind)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := journal.NewSQLiteStore("/nonexistent/path/db.sqlite")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name     string
		settings config.JournalSettings
		wantErr  bool
		check    func(t *testing.T, s journal.Store)
	}{
		{
			name:     "none",
			settings: config.JournalSettings{Driver: config.JournalNone},
			check: func(t *testing.T, s journal.Store) {
				assert.IsType(t, journal.NopStore{}, s)
			},
		},
		{
			name:     "memory",
			settings: config.JournalSettings{Driver: config.JournalMemory},
			check: func(t *testing.T, s journal.Store) {
				assert.IsType(t, &journal.MemoryStore{}, s)
			},
		},
		{
			name:     "sqlite",
			settings: config.JournalSettings{Driver: config.JournalSQLite, Path: ":memory:"},
			check: func(t *testing.T, s journal.Store) {
				assert.IsType(t, &journal.SQLiteStore{}, s)
			},
		},
		{
			name:     "unknown",
			settings: config.JournalSettings{Driver: "postgres"},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := journal.Open(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}
}

func TestEntryMarshalRoundTrip(t *testing.T) {
	e := &journal.Entry{Version: journal.Version, OperationID: "op", Transition: journal.Failed, Error: "bad"}
	data, err := e.Marshal()
	require.NoError(t, err)

	got, err := journal.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "op", got.OperationID)
	assert.Equal(t, journal.Failed, got.Transition)

	_, err = journal.Unmarshal([]byte("{"))
	assert.Error(t, err)
}
