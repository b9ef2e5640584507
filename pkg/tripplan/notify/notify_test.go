package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/notify"
)

func newBus() *event.Bus {
	return event.NewBus(event.BusConfig{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
}

func publish(bus *event.Bus, typ event.Type, payload map[string]any) {
	bus.Publish(context.Background(), event.New(typ, "test", payload))
}

func TestCollector(t *testing.T) {
	bus := newBus()
	c := notify.NewCollector()
	c.Subscribe(bus)

	publish(bus, event.TripCreated, map[string]any{"user_id": "u1", "trip_id": "t1", "destination": "Lisbon"})
	publish(bus, event.TripBudgetUpdated, map[string]any{"user_id": "u1", "trip_id": "t1", "budget": 1500.0})
	publish(bus, event.UserCreated, map[string]any{"user_id": "u2"})
	publish(bus, event.TripUpdated, map[string]any{"trip_id": "t9"})

	all := c.Notifications("", false)
	require.Len(t, all, 3)

	u1 := c.Notifications("u1", false)
	require.Len(t, u1, 2)
	assert.Equal(t, "trip to Lisbon created", u1[0].Message)
	assert.Equal(t, "budget of trip t1 set to 1500.00", u1[1].Message)
	assert.Equal(t, "t1", u1[0].TripID)

	require.NoError(t, c.MarkRead(u1[0].ID))
	assert.Equal(t, 1, c.Unread("u1"))
	assert.True(t, tperrors.IsNotFound(c.MarkRead(999)))

	assert.Equal(t, 1, c.MarkAllRead("u1"))
	assert.Equal(t, 0, c.Unread("u1"))
	assert.Equal(t, 1, c.Unread("u2"))

	assert.Equal(t, 2, c.Clear("u1"))
	assert.Len(t, c.Notifications("", false), 1)
	assert.Equal(t, 1, c.Clear(""))
	assert.Empty(t, c.Notifications("", false))
}

func TestCollectorReturnsCopies(t *testing.T) {
	c := notify.NewCollector()
	require.NoError(t, c.Handle(context.Background(), event.New(event.UserCreated, "test", map[string]any{"user_id": "u1"})))

	got := c.Notifications("u1", false)
	got[0].Data["user_id"] = "changed"
	assert.Equal(t, "u1", c.Notifications("u1", false)[0].Data["user_id"])
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		typ     event.Type
		payload map[string]any
		want    string
	}{
		{event.TripDeleted, map[string]any{"trip_id": "t1"}, "trip t1 deleted"},
		{event.TripCollaboratorInvited, map[string]any{"trip_id": "t1", "collaborator_id": "u2"}, "u2 invited to trip t1"},
		{event.ItemAdded, map[string]any{"trip_id": "t1", "entity_kind": "flight"}, "flight added to trip t1"},
		{event.ItemStatusChanged, map[string]any{"entity_kind": "activity", "entity_id": "a1"}, "activity a1 status changed"},
		{event.OperationUndone, map[string]any{"undone_type": "trip.created"}, "trip.created undone"},
		{event.RecommendationGenerated, map[string]any{"count": 3, "strategy": "hybrid"}, "3 recommendations generated using hybrid"},
		{event.Type("custom.thing"), nil, "custom.thing"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, notify.Describe(event.New(tt.typ, "test", tt.payload)))
		})
	}
}

func TestTripHistory(t *testing.T) {
	bus := newBus()
	h := notify.NewTripHistory()
	h.Subscribe(bus)

	publish(bus, event.TripCreated, map[string]any{"trip_id": "t1", "user_id": "u1"})
	publish(bus, event.ItemAdded, map[string]any{"trip_id": "t1"})
	publish(bus, event.ItemAdded, map[string]any{"trip_id": "t2"})
	publish(bus, event.UserCreated, map[string]any{"user_id": "u1"})

	got := h.History("t1")
	require.Len(t, got, 2)
	assert.Equal(t, event.TripCreated, got[0].Type)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, event.ItemAdded, got[1].Type)
	assert.Len(t, h.History("t2"), 1)
	assert.Empty(t, h.History("missing"))
}

func TestBudgetWatcher(t *testing.T) {
	bus := newBus()
	var hooked []notify.BudgetChange
	w := notify.NewBudgetWatcher(
		notify.WithThreshold(1000),
		notify.WithAlertHook(func(c notify.BudgetChange) { hooked = append(hooked, c) }),
		notify.WithBudgetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	w.Subscribe(bus)

	publish(bus, event.TripBudgetUpdated, map[string]any{"trip_id": "t1", "budget": 800.0, "old_budget": 500.0})
	publish(bus, event.TripBudgetUpdated, map[string]any{"trip_id": "t1", "budget": 1200.0, "old_budget": 800.0})
	publish(bus, event.TripCreated, map[string]any{"trip_id": "t1", "budget": 5000.0})

	history := w.History("t1")
	require.Len(t, history, 2)
	assert.Equal(t, 300.0, history[0].Delta())
	assert.False(t, history[0].Alert)
	assert.True(t, history[1].Alert)

	require.Len(t, w.Alerts(), 1)
	require.Len(t, hooked, 1)
	assert.Equal(t, 1200.0, hooked[0].New)

	w.SetThreshold(2000)
	assert.Equal(t, 2000.0, w.Threshold())
	publish(bus, event.TripBudgetUpdated, map[string]any{"trip_id": "t1", "budget": 1500.0})
	assert.Len(t, w.Alerts(), 1)
}

func TestRecommendationTracker(t *testing.T) {
	bus := newBus()
	tr := notify.NewRecommendationTracker()
	tr.Subscribe(bus)

	publish(bus, event.RecommendationGenerated, map[string]any{"user_id": "u1", "strategy": "hybrid", "recommendation_type": "destination"})
	publish(bus, event.RecommendationGenerated, map[string]any{"user_id": "u1", "strategy": "climate"})
	publish(bus, event.RecommendationGenerated, map[string]any{"user_id": "u2", "strategy": "hybrid"})

	u1 := tr.Stats("u1")
	assert.Equal(t, 2, u1.Total)
	assert.Equal(t, map[string]int{"destination": 1, "unknown": 1}, u1.ByType)
	assert.Equal(t, map[string]int{"hybrid": 1, "climate": 1}, u1.ByStrategy)

	all := tr.Stats("")
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 2, all.ByStrategy["hybrid"])
	assert.Equal(t, 0, tr.Stats("nobody").Total)
}
