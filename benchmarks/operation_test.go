package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
)

func tripPayload() map[string]any {
	return map[string]any{
		"destination": "Lisbon",
		"start_date":  "2025-05-01",
		"end_date":    "2025-05-10",
		"budget":      1000,
	}
}

// BenchmarkExecute_TripCreate creates one trip per iteration, including
// share code generation against a growing store.
func BenchmarkExecute_TripCreate(b *testing.B) {
	engine := operation.NewEngine(store.New())
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Execute(ctx, operation.TripCreate, tripPayload()); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecute_ValidationFailure measures the fail-fast path.
func BenchmarkExecute_ValidationFailure(b *testing.B) {
	engine := operation.NewEngine(store.New())
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Execute(ctx, operation.TripCreate, map[string]any{"destination": "Lisbon"})
	}
}

// BenchmarkExecuteUndo_ItemAdd adds and undoes an activity.
func BenchmarkExecuteUndo_ItemAdd(b *testing.B) {
	engine := operation.NewEngine(store.New())
	ctx := context.Background()
	trip, err := engine.Execute(ctx, operation.TripCreate, tripPayload())
	if err != nil {
		b.Fatal(err)
	}
	payload := map[string]any{
		"item_type":   "activity",
		"trip_id":     trip.Entity().EntityID(),
		"description": "Tram 28",
		"date":        "2025-05-02",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		op, err := engine.Execute(ctx, operation.ItemAdd, payload)
		if err != nil {
			b.Fatal(err)
		}
		if err := op.Undo(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTripDeleteUndo_Cascade deletes and restores trips with many items.
func BenchmarkTripDeleteUndo_Cascade(b *testing.B) {
	for _, items := range []int{10, 100} {
		b.Run(fmt.Sprintf("items_%d", items), func(b *testing.B) {
			engine := operation.NewEngine(store.New())
			ctx := context.Background()
			trip, err := engine.Execute(ctx, operation.TripCreate, tripPayload())
			if err != nil {
				b.Fatal(err)
			}
			tripID := trip.Entity().EntityID()
			for i := 0; i < items; i++ {
				if _, err := engine.Execute(ctx, operation.ItemAdd, map[string]any{
					"item_type": "expense", "trip_id": tripID, "description": "x", "amount": 1,
				}); err != nil {
					b.Fatal(err)
				}
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				op, err := engine.Execute(ctx, operation.TripDelete, map[string]any{"trip_id": tripID})
				if err != nil {
					b.Fatal(err)
				}
				if err := op.Undo(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkExecute_Parallel creates trips from concurrent callers.
func BenchmarkExecute_Parallel(b *testing.B) {
	engine := operation.NewEngine(store.New())
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := engine.Execute(ctx, operation.TripCreate, tripPayload()); err != nil {
				b.Error(err)
			}
		}
	})
}

// BenchmarkJournal_SQLite measures executing with a SQLite journal.
func BenchmarkJournal_SQLite(b *testing.B) {
	j, err := journal.NewSQLiteStore(b.TempDir() + "/journal.db")
	if err != nil {
		b.Fatal(err)
	}
	defer j.Close()

	engine := operation.NewEngine(store.New(), operation.WithJournal(j))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Execute(ctx, operation.TripCreate, tripPayload()); err != nil {
			b.Fatal(err)
		}
	}
}
