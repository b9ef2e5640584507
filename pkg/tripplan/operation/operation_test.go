package operation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Handle(_ context.Context, evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func (r *recorder) Types() []event.Type {
	var out []event.Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	engine  *operation.Engine
	store   *store.Store
	journal *journal.MemoryStore
	events  *recorder
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%03d", prefix, n.Add(1)) }
}

func newFixture(t *testing.T, opts ...operation.Option) *fixture {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }

	st := store.New(store.WithClock(clock), store.WithIDGenerator(sequentialIDs("id")))
	bus := event.NewBus(event.DefaultBusConfig)
	rec := &recorder{}
	bus.SubscribeAll("recorder", rec)
	j := journal.NewMemoryStore()

	all := append([]operation.Option{
		operation.WithBus(bus),
		operation.WithJournal(j),
		operation.WithClock(clock),
		operation.WithIDGenerator(sequentialIDs("op")),
	}, opts...)
	return &fixture{
		engine:  operation.NewEngine(st, all...),
		store:   st,
		journal: j,
		events:  rec,
	}
}

func (f *fixture) mustExecute(t *testing.T, k operation.Kind, payload map[string]any) *operation.Operation {
	t.Helper()
	op, err := f.engine.Execute(context.Background(), k, payload)
	require.NoError(t, err)
	require.Equal(t, operation.Executed, op.Status())
	return op
}

func lisbon() map[string]any {
	return map[string]any{
		"user_id":     "",
		"destination": "lisbon",
		"start_date":  "2025-05-01",
		"end_date":    "2025-05-10",
		"budget":      1000,
	}
}

// seed creates two users, a trip owned by the first, and one activity.
type seeded struct {
	owner, guest, trip, activity string
}

func (f *fixture) seed(t *testing.T) seeded {
	t.Helper()
	owner := f.mustExecute(t, operation.UserCreate, map[string]any{"name": "Ana", "email": "ana@example.com"})
	guest := f.mustExecute(t, operation.UserCreate, map[string]any{"name": "Rui", "email": "rui@example.com"})

	payload := lisbon()
	payload["user_id"] = owner.Entity().EntityID()
	trip := f.mustExecute(t, operation.TripCreate, payload)

	act := f.mustExecute(t, operation.ItemAdd, map[string]any{
		"item_type":   "activity",
		"trip_id":     trip.Entity().EntityID(),
		"description": "Tram 28",
		"date":        "2025-05-02",
	})
	return seeded{
		owner:    owner.Entity().EntityID(),
		guest:    guest.Entity().EntityID(),
		trip:     trip.Entity().EntityID(),
		activity: act.Entity().EntityID(),
	}
}

func TestCreateTripThenUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	op, err := f.engine.New(operation.TripCreate, lisbon())
	require.NoError(t, err)
	assert.Equal(t, operation.Pending, op.Status())
	assert.Equal(t, entity.KindTrip, op.Target())

	require.NoError(t, op.Execute(ctx))
	assert.Equal(t, operation.Executed, op.Status())

	res := op.Result()
	id, _ := res["id"].(string)
	code, _ := res["share_code"].(string)
	require.NotEmpty(t, id)
	require.Len(t, code, 6)
	assert.Equal(t, "Lisbon", res["destination"])
	assert.Equal(t, 1000.0, res["budget"])
	assert.True(t, f.store.ShareCodeTaken(code))

	require.NoError(t, op.Undo(ctx))
	assert.Equal(t, operation.Undone, op.Status())
	assert.False(t, f.store.ShareCodeTaken(code))
	_, err = f.store.Get(entity.KindTrip, id)
	assert.True(t, tperrors.IsNotFound(err))

	// The freed code can be claimed again.
	again := lisbon()
	again["share_code"] = code
	f.mustExecute(t, operation.TripCreate, again)

	types := f.events.Types()
	require.Len(t, types, 3)
	assert.Equal(t, []event.Type{event.TripCreated, event.OperationUndone, event.TripCreated}, types)

	created, undone := f.events.Events()[0], f.events.Events()[1]
	assert.Equal(t, id, created.String(event.KeyTripID))
	assert.Equal(t, "Lisbon", created.String(event.KeyDestination))
	assert.Equal(t, created.ID, undone.CausationID)
	assert.Equal(t, created.CorrelationID, undone.CorrelationID)
	assert.Equal(t, string(event.TripCreated), undone.String(event.KeyUndoneType))
	assert.Equal(t, id, undone.String(event.KeyEntityID))
}

func TestExecute_MissingDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := lisbon()
	delete(payload, "destination")
	op, err := f.engine.Execute(ctx, operation.TripCreate, payload)
	require.Error(t, err)

	var ve *tperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"missing required field: destination"}, ve.Messages)

	assert.Equal(t, operation.Failed, op.Status())
	assert.Equal(t, err, op.Err())
	assert.Nil(t, op.Result())
	assert.False(t, op.Validation().Success)
	assert.Equal(t, []string{"sanitize", "required"}, op.Validation().ProcessedBy)
	assert.Zero(t, f.store.Count(entity.KindTrip))
	assert.Empty(t, f.events.Events())
}

func TestExecute_RejectsReexecution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	op := f.mustExecute(t, operation.TripCreate, lisbon())
	err := op.Execute(ctx)
	require.Error(t, err)
	assert.True(t, tperrors.IsInvalidState(err))
	assert.Equal(t, 1, f.store.Count(entity.KindTrip))
}

func TestUndo_InvalidStates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) *operation.Operation
	}{
		{
			name: "pending",
			setup: func(t *testing.T, f *fixture) *operation.Operation {
				op, err := f.engine.New(operation.TripCreate, lisbon())
				require.NoError(t, err)
				return op
			},
		},
		{
			name: "failed",
			setup: func(t *testing.T, f *fixture) *operation.Operation {
				op, err := f.engine.Execute(ctx, operation.TripUpdate, map[string]any{"trip_id": "missing"})
				require.Error(t, err)
				return op
			},
		},
		{
			name: "undone",
			setup: func(t *testing.T, f *fixture) *operation.Operation {
				op := f.mustExecute(t, operation.TripCreate, lisbon())
				require.NoError(t, op.Undo(ctx))
				return op
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t)
			op := tt.setup(t, f)
			before := f.store.Snapshot()
			status := op.Status()
			published := len(f.events.Events())

			err := op.Undo(ctx)
			require.Error(t, err)
			assert.True(t, tperrors.IsInvalidState(err))

			var ise *tperrors.InvalidStateError
			require.ErrorAs(t, err, &ise)
			assert.Equal(t, "undo", ise.Op)
			assert.Equal(t, string(status), ise.Status)

			assert.Equal(t, before, f.store.Snapshot())
			assert.Equal(t, status, op.Status())
			assert.Len(t, f.events.Events(), published)
		})
	}
}

func TestExecuteThenUndoRestoresStore(t *testing.T) {
	tests := []struct {
		name    string
		kind    operation.Kind
		payload func(s seeded) map[string]any
	}{
		{"trip create", operation.TripCreate, func(s seeded) map[string]any {
			p := lisbon()
			p["user_id"] = s.owner
			return p
		}},
		{"trip update", operation.TripUpdate, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "name": "Spring", "destination": "porto", "end_date": "2025-05-12"}
		}},
		{"trip delete cascades", operation.TripDelete, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip}
		}},
		{"budget", operation.TripUpdateBudget, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "budget": "2500"}
		}},
		{"invite", operation.TripInviteCollaborator, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "user_id": s.guest}
		}},
		{"item add", operation.ItemAdd, func(s seeded) map[string]any {
			return map[string]any{"item_type": "expense", "trip_id": s.trip, "description": "Dinner", "amount": 42.5}
		}},
		{"item update", operation.ItemUpdate, func(s seeded) map[string]any {
			return map[string]any{"item_type": "activity", "item_id": s.activity, "description": "Tram 12"}
		}},
		{"item delete", operation.ItemDelete, func(s seeded) map[string]any {
			return map[string]any{"item_type": "activity", "item_id": s.activity}
		}},
		{"item status", operation.ItemSetStatus, func(s seeded) map[string]any {
			return map[string]any{"item_type": "activity", "item_id": s.activity, "done": "yes"}
		}},
		{"user create", operation.UserCreate, func(seeded) map[string]any {
			return map[string]any{"name": "Eva", "email": "eva@example.com"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.seed(t)
			before := f.store.Snapshot()

			op := f.mustExecute(t, tt.kind, tt.payload(s))
			assert.NotEqual(t, before, f.store.Snapshot())

			require.NoError(t, op.Undo(context.Background()))
			assert.Equal(t, before, f.store.Snapshot())
		})
	}
}

func TestRemoveCollaboratorThenUndo(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	f.mustExecute(t, operation.TripInviteCollaborator, map[string]any{"trip_id": s.trip, "user_id": s.guest})
	before := f.store.Snapshot()

	op := f.mustExecute(t, operation.TripRemoveCollaborator, map[string]any{"trip_id": s.trip, "user_id": s.guest})
	trip := op.Entity().(*entity.Trip)
	assert.Empty(t, trip.Collaborators)

	require.NoError(t, op.Undo(context.Background()))
	assert.Equal(t, before, f.store.Snapshot())
}

func TestUndoKeepsLaterChanges(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	first := f.mustExecute(t, operation.ItemAdd, map[string]any{
		"item_type": "expense", "trip_id": s.trip, "description": "Dinner", "amount": 40,
	})
	second := f.mustExecute(t, operation.ItemAdd, map[string]any{
		"item_type": "expense", "trip_id": s.trip, "description": "Taxi", "amount": 15,
	})

	require.NoError(t, first.Undo(ctx))

	trip, err := f.store.Get(entity.KindTrip, s.trip)
	require.NoError(t, err)
	assert.Equal(t, []string{s.activity, second.Entity().EntityID()}, trip.(*entity.Trip).ItemIDs)

	_, err = f.store.Get(entity.KindExpense, first.Entity().EntityID())
	assert.True(t, tperrors.IsNotFound(err))
	_, err = f.store.Get(entity.KindExpense, second.Entity().EntityID())
	assert.NoError(t, err)
}

func TestUndoItemDeleteRestoresPosition(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	del := f.mustExecute(t, operation.ItemDelete, map[string]any{"item_type": "activity", "item_id": s.activity})
	added := f.mustExecute(t, operation.ItemAdd, map[string]any{
		"item_type": "expense", "trip_id": s.trip, "description": "Dinner", "amount": 40,
	})

	require.NoError(t, del.Undo(context.Background()))
	trip, err := f.store.Get(entity.KindTrip, s.trip)
	require.NoError(t, err)
	assert.Equal(t, []string{s.activity, added.Entity().EntityID()}, trip.(*entity.Trip).ItemIDs)
	assert.Equal(t, 1, f.store.Count(entity.KindActivity))
}

func TestUndoInviteKeepsOtherCollaborators(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	eva := f.mustExecute(t, operation.UserCreate, map[string]any{"name": "Eva", "email": "eva@example.com"})

	invite := f.mustExecute(t, operation.TripInviteCollaborator, map[string]any{"trip_id": s.trip, "user_id": s.guest})
	f.mustExecute(t, operation.TripInviteCollaborator, map[string]any{"trip_id": s.trip, "user_id": eva.Entity().EntityID()})
	f.mustExecute(t, operation.TripUpdateBudget, map[string]any{"trip_id": s.trip, "budget": 1800})

	require.NoError(t, invite.Undo(context.Background()))
	trip, err := f.store.Get(entity.KindTrip, s.trip)
	require.NoError(t, err)
	assert.Equal(t, []string{eva.Entity().EntityID()}, trip.(*entity.Trip).Collaborators)
	assert.Equal(t, 1800.0, trip.(*entity.Trip).Budget)
}

func TestUndoConflictsWithLaterWrites(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture, s seeded) *operation.Operation
	}{
		{"budget overwritten", func(t *testing.T, f *fixture, s seeded) *operation.Operation {
			op := f.mustExecute(t, operation.TripUpdateBudget, map[string]any{"trip_id": s.trip, "budget": 1500})
			f.mustExecute(t, operation.TripUpdateBudget, map[string]any{"trip_id": s.trip, "budget": 2000})
			return op
		}},
		{"created trip gained items", func(t *testing.T, f *fixture, s seeded) *operation.Operation {
			op := f.mustExecute(t, operation.TripCreate, lisbon())
			f.mustExecute(t, operation.ItemAdd, map[string]any{
				"item_type": "expense", "trip_id": op.Entity().EntityID(), "description": "Dinner", "amount": 40,
			})
			return op
		}},
		{"updated item deleted", func(t *testing.T, f *fixture, s seeded) *operation.Operation {
			op := f.mustExecute(t, operation.ItemUpdate, map[string]any{
				"item_type": "activity", "item_id": s.activity, "description": "Tram 12",
			})
			f.mustExecute(t, operation.ItemDelete, map[string]any{"item_type": "activity", "item_id": s.activity})
			return op
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.seed(t)
			op := tt.setup(t, f, s)
			before := f.store.Snapshot()

			err := op.Undo(context.Background())
			require.Error(t, err)
			assert.True(t, tperrors.IsConflict(err))
			assert.Equal(t, operation.Executed, op.Status())
			assert.Equal(t, before, f.store.Snapshot())
		})
	}
}

func TestTripDelete_CascadesItems(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	f.mustExecute(t, operation.ItemAdd, map[string]any{
		"item_type": "hotel", "trip_id": s.trip, "name": "Bairro Alto",
		"checkin": "2025-05-01", "checkout": "2025-05-04",
	})

	op := f.mustExecute(t, operation.TripDelete, map[string]any{"trip_id": s.trip})
	assert.Zero(t, f.store.Count(entity.KindTrip))
	assert.Zero(t, f.store.Count(entity.KindActivity))
	assert.Zero(t, f.store.Count(entity.KindHotel))
	assert.Equal(t, 2, op.Event().Payload["items_deleted"])

	require.NoError(t, op.Undo(context.Background()))
	assert.Equal(t, 1, f.store.Count(entity.KindActivity))
	assert.Equal(t, 1, f.store.Count(entity.KindHotel))
}

func TestConcurrentSuppliedShareCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	ops := make([]*operation.Operation, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		p := lisbon()
		p["share_code"] = "abc1"
		op, err := f.engine.New(operation.TripCreate, p)
		require.NoError(t, err)
		ops[i] = op

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ops[i].Execute(ctx)
		}(i)
	}
	wg.Wait()

	executed := 0
	for i, op := range ops {
		switch op.Status() {
		case operation.Executed:
			executed++
			assert.Equal(t, "ABC1", op.Result()["share_code"])
		case operation.Failed:
			assert.True(t, tperrors.IsConflict(errs[i]), "unexpected error: %v", errs[i])
		default:
			t.Fatalf("unexpected status %s", op.Status())
		}
	}
	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, f.store.Count(entity.KindTrip))
}

func TestConcurrentGeneratedShareCodesAreUnique(t *testing.T) {
	settings := config.DefaultSettings()
	settings.ShareCode.Alphabet = "AB"
	settings.ShareCode.Length = 4
	settings.ShareCode.MaxAttempts = 200
	f := newFixture(t, operation.WithSettings(settings))

	const n = 10
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Execute(context.Background(), operation.TripCreate, lisbon())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, e := range f.store.List(entity.KindTrip, nil) {
		code := e.(*entity.Trip).ShareCode
		assert.False(t, seen[code], "duplicate share code %s", code)
		seen[code] = true
	}
	assert.Len(t, seen, n)
}

func codes(list ...string) (operation.ShareCodeGenerator, *atomic.Int64) {
	var calls atomic.Int64
	return func() (string, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(list) {
			return list[len(list)-1], nil
		}
		return list[i], nil
	}, &calls
}

func TestShareCodeRetriesOnConflict(t *testing.T) {
	gen, calls := codes("TAKEN1", "TAKEN1", "FRESH2")
	f := newFixture(t, operation.WithShareCodeGenerator(gen))

	taken := lisbon()
	taken["share_code"] = "TAKEN1"
	f.mustExecute(t, operation.TripCreate, taken)
	assert.Zero(t, calls.Load())

	op := f.mustExecute(t, operation.TripCreate, lisbon())
	assert.Equal(t, "FRESH2", op.Result()["share_code"])
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, 2, f.store.Count(entity.KindTrip))
}

func TestShareCodeRetriesExhausted(t *testing.T) {
	settings := config.DefaultSettings()
	settings.ShareCode.MaxAttempts = 3
	gen, calls := codes("TAKEN1")
	f := newFixture(t, operation.WithSettings(settings), operation.WithShareCodeGenerator(gen))

	taken := lisbon()
	taken["share_code"] = "TAKEN1"
	f.mustExecute(t, operation.TripCreate, taken)

	op, err := f.engine.Execute(context.Background(), operation.TripCreate, lisbon())
	require.Error(t, err)
	assert.True(t, tperrors.IsConflict(err))
	assert.Equal(t, operation.Failed, op.Status())
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, 1, f.store.Count(entity.KindTrip))
}

func TestShareCodeGeneratorError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	f := newFixture(t, operation.WithShareCodeGenerator(func() (string, error) { return "", boom }))

	_, err := f.engine.Execute(context.Background(), operation.TripCreate, lisbon())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.store.Count(entity.KindTrip))
}

func TestUndoConflictKeepsExecuted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := lisbon()
	first["share_code"] = "OLD111"
	trip := f.mustExecute(t, operation.TripCreate, first)

	update := f.mustExecute(t, operation.TripUpdate, map[string]any{
		"trip_id":    trip.Entity().EntityID(),
		"share_code": "NEW222",
	})

	other := lisbon()
	other["share_code"] = "OLD111"
	f.mustExecute(t, operation.TripCreate, other)
	before := f.store.Snapshot()

	err := update.Undo(ctx)
	require.Error(t, err)
	assert.True(t, tperrors.IsConflict(err))
	assert.Equal(t, operation.Executed, update.Status())
	assert.Equal(t, before, f.store.Snapshot())
}

func TestReferentialChecks(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    operation.Kind
		payload func(s seeded) map[string]any
		check   func(error) bool
	}{
		{"item on missing trip", operation.ItemAdd, func(seeded) map[string]any {
			return map[string]any{"item_type": "activity", "trip_id": "nope", "description": "x", "date": "2025-05-02"}
		}, tperrors.IsNotFound},
		{"invite missing user", operation.TripInviteCollaborator, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "user_id": "ghost"}
		}, tperrors.IsNotFound},
		{"invite owner", operation.TripInviteCollaborator, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "user_id": s.owner}
		}, tperrors.IsConflict},
		{"remove non-collaborator", operation.TripRemoveCollaborator, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "user_id": s.guest}
		}, tperrors.IsNotFound},
		{"review of missing target", operation.ItemAdd, func(s seeded) map[string]any {
			return map[string]any{
				"item_type": "review", "trip_id": s.trip, "user_id": s.guest,
				"target_kind": "hotel", "target_id": "nope", "rating": 4,
			}
		}, tperrors.IsNotFound},
		{"preference of missing user", operation.ItemAdd, func(seeded) map[string]any {
			return map[string]any{"item_type": "preference", "user_id": "ghost", "preference_type": "climate", "value": "tropical"}
		}, tperrors.IsNotFound},
		{"duplicate email", operation.UserCreate, func(seeded) map[string]any {
			return map[string]any{"name": "Ana Again", "email": "ANA@example.com"}
		}, tperrors.IsConflict},
		{"update end before start", operation.TripUpdate, func(s seeded) map[string]any {
			return map[string]any{"trip_id": s.trip, "end_date": "2025-04-01"}
		}, tperrors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.seed(t)
			before := f.store.Snapshot()

			op, err := f.engine.Execute(ctx, tt.kind, tt.payload(s))
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Equal(t, operation.Failed, op.Status())
			assert.Equal(t, before, f.store.Snapshot())
		})
	}
}

func TestInviteTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	payload := map[string]any{"trip_id": s.trip, "user_id": s.guest}
	f.mustExecute(t, operation.TripInviteCollaborator, payload)

	_, err := f.engine.Execute(context.Background(), operation.TripInviteCollaborator, payload)
	assert.True(t, tperrors.IsConflict(err))
}

func TestItemAddLinksTripAndAddressesOwner(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	op := f.mustExecute(t, operation.ItemAdd, map[string]any{
		"item_type": "expense", "trip_id": s.trip, "description": "Pastéis", "amount": "12",
	})
	assert.Equal(t, entity.KindExpense, op.Target())

	exp := op.Entity().(*entity.Expense)
	assert.Equal(t, "USD", exp.Currency)
	assert.Equal(t, "general", exp.Category)
	assert.Equal(t, 12.0, exp.Amount)

	trip, err := f.store.Get(entity.KindTrip, s.trip)
	require.NoError(t, err)
	assert.Contains(t, trip.(*entity.Trip).ItemIDs, exp.ID)

	evt := op.Event()
	assert.Equal(t, event.ItemAdded, evt.Type)
	assert.Equal(t, s.trip, evt.String(event.KeyTripID))
	assert.Equal(t, s.owner, evt.String(event.KeyUserID))
}

func TestSetStatusEvent(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	op := f.mustExecute(t, operation.ItemSetStatus, map[string]any{
		"item_type": "activity", "item_id": s.activity, "done": "true",
	})
	assert.True(t, op.Entity().(entity.Item).IsDone())
	assert.Equal(t, true, op.Event().Payload[event.KeyDone])
	assert.Equal(t, false, op.Event().Payload["previous_done"])
}

func TestInviteEventAddressesCollaborator(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	op := f.mustExecute(t, operation.TripInviteCollaborator, map[string]any{"trip_id": s.trip, "user_id": s.guest})
	evt := op.Event()
	assert.Equal(t, s.guest, evt.String(event.KeyUserID))
	assert.Equal(t, s.guest, evt.String(event.KeyCollaboratorID))
	assert.Equal(t, s.owner, evt.String("owner_id"))
}

func TestJournalRecordsTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	op := f.mustExecute(t, operation.TripCreate, lisbon())
	require.NoError(t, op.Undo(ctx))

	failed, err := f.engine.Execute(ctx, operation.TripDelete, map[string]any{})
	require.Error(t, err)

	entries, err := f.journal.List(op.ID())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, journal.Executed, entries[0].Transition)
	assert.Equal(t, "trip", entries[0].EntityKind)
	assert.Equal(t, op.Entity().EntityID(), entries[0].EntityID)
	assert.Equal(t, journal.Undone, entries[1].Transition)

	entries, err = f.journal.List(failed.ID())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.Failed, entries[0].Transition)
	assert.Contains(t, entries[0].Error, "missing required field: trip_id")
}

type brokenJournal struct{ journal.NopStore }

func (brokenJournal) Append(journal.Entry) (journal.Entry, error) {
	return journal.Entry{}, errors.New("disk full")
}

func TestJournalFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, operation.WithJournal(brokenJournal{}))
	op := f.mustExecute(t, operation.TripCreate, lisbon())
	require.NoError(t, op.Undo(context.Background()))
}

func TestSubscriberFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.engine.Bus().SubscribeAll("broken", event.HandlerFunc(func(context.Context, event.Event) error {
		panic("subscriber bug")
	}))

	f.mustExecute(t, operation.TripCreate, lisbon())
	assert.Len(t, f.engine.Bus().Failures(), 1)
	assert.Len(t, f.events.Events(), 1)
}

func TestEngine_UnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.New("trip.teleport", nil)
	assert.Error(t, err)
}

func TestPipelineOverride(t *testing.T) {
	f := newFixture(t, operation.WithPipeline(operation.UserCreate, nil))

	// A nil chain accepts anything.
	op := f.mustExecute(t, operation.UserCreate, map[string]any{"name": "No Email"})
	assert.Empty(t, op.Validation().ProcessedBy)
	assert.NotNil(t, f.engine.Pipeline(operation.TripCreate))
}

func TestRecord(t *testing.T) {
	f := newFixture(t)
	op := f.mustExecute(t, operation.TripCreate, lisbon())
	rec := op.Record()

	assert.Equal(t, op.ID(), rec["id"])
	assert.Equal(t, "trip.create", rec["kind"])
	assert.Equal(t, "executed", rec["status"])
	assert.Equal(t, "", rec["error"])
	assert.NotEmpty(t, rec["executed_at"])
	assert.Equal(t, "", rec["undone_at"])
	assert.Equal(t, "lisbon", rec["payload"].(map[string]any)["destination"])
}
