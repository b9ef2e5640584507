package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
)

func TestParseKind(t *testing.T) {
	for _, k := range entity.Kinds() {
		got, err := entity.ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := entity.ParseKind("spaceship")
	assert.Error(t, err)
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		kind       entity.Kind
		item       bool
		userScoped bool
	}{
		{entity.KindTrip, false, false},
		{entity.KindUser, false, false},
		{entity.KindFlight, true, false},
		{entity.KindExpense, true, false},
		{entity.KindReview, true, false},
		{entity.KindPreference, true, true},
		{entity.KindProfile, true, true},
		{entity.KindRecommendation, true, true},
		{entity.Kind("bogus"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.item, tt.kind.IsItem())
			assert.Equal(t, tt.userScoped, tt.kind.IsUserScoped())
		})
	}
}

func TestNewCoversEveryKind(t *testing.T) {
	for _, k := range entity.Kinds() {
		t.Run(string(k), func(t *testing.T) {
			e, err := entity.New(k)
			require.NoError(t, err)
			assert.Equal(t, k, e.EntityKind())

			c := entity.Clone(e)
			assert.Equal(t, k, c.EntityKind())
			assert.NotSame(t, e, c)

			rec := e.Export()
			assert.Equal(t, string(k), rec["kind"])
			if k.IsItem() {
				_, ok := e.(entity.Item)
				assert.True(t, ok, "%s should be an item", k)
			}
		})
	}

	_, err := entity.New("bogus")
	assert.Error(t, err)
}

func TestDecodeTrip(t *testing.T) {
	e, err := entity.Decode(entity.KindTrip, map[string]any{
		"user_id":       "u1",
		"name":          "Spring",
		"destination":   "Lisbon",
		"start_date":    "2025-05-01",
		"end_date":      "10/05/2025",
		"budget":        "1000",
		"collaborators": []any{"u2", "u3"},
		"unknown_key":   true,
	})
	require.NoError(t, err)

	trip := e.(*entity.Trip)
	assert.Equal(t, "Lisbon", trip.Destination)
	assert.Equal(t, 1000.0, trip.Budget)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), trip.StartDate)
	assert.Equal(t, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), trip.EndDate)
	assert.Equal(t, []string{"u2", "u3"}, trip.Collaborators)
	assert.Equal(t, 9, trip.Days())
	assert.Equal(t, entity.Ref{Kind: entity.KindUser, ID: "u1"}, trip.Owner())
}

func TestDecodeAcceptsTimeValues(t *testing.T) {
	when := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	e, err := entity.Decode(entity.KindFlight, map[string]any{
		"trip_id":   "t1",
		"company":   "TAP",
		"code":      "TP123",
		"departure": when,
		"arrival":   "2025-06-01T12:00:00",
	})
	require.NoError(t, err)

	f := e.(*entity.Flight)
	assert.Equal(t, when, f.Departure)
	assert.Equal(t, "t1", f.ParentTrip())
	assert.Equal(t, entity.Ref{Kind: entity.KindTrip, ID: "t1"}, f.Owner())
	assert.Equal(t, "2025-06-01T12:00:00", f.Export()["arrival"])
}

func TestDecodeSplitsCommaLists(t *testing.T) {
	e, err := entity.Decode(entity.KindProfile, map[string]any{
		"user_id":   "u1",
		"interests": "cultural,food",
	})
	require.NoError(t, err)

	p := e.(*entity.Profile)
	assert.Equal(t, []string{"cultural", "food"}, p.Interests)
	assert.Equal(t, entity.Ref{Kind: entity.KindUser, ID: "u1"}, p.Owner())
}

func TestDecodeRejectsBadDate(t *testing.T) {
	_, err := entity.Decode(entity.KindTrip, map[string]any{"start_date": "next tuesday"})
	assert.Error(t, err)
}

func TestDecodeIntoKeepsAbsentFields(t *testing.T) {
	trip := &entity.Trip{Destination: "Lisbon", Budget: 500}
	require.NoError(t, entity.DecodeInto(trip, map[string]any{"budget": 750.0}))

	assert.Equal(t, "Lisbon", trip.Destination)
	assert.Equal(t, 750.0, trip.Budget)
}

func TestCloneIsDeep(t *testing.T) {
	trip := &entity.Trip{
		Meta:          entity.Meta{ID: "t1"},
		Collaborators: []string{"u2"},
		ItemIDs:       []string{"i1"},
	}
	c := entity.Clone(trip).(*entity.Trip)
	c.Collaborators[0] = "changed"
	c.ItemIDs = append(c.ItemIDs, "i2")

	assert.Equal(t, []string{"u2"}, trip.Collaborators)
	assert.Equal(t, []string{"i1"}, trip.ItemIDs)

	res := &entity.Resource{Contact: map[string]string{"phone": "123"}}
	rc := entity.Clone(res).(*entity.Resource)
	rc.Contact["phone"] = "999"
	assert.Equal(t, "123", res.Contact["phone"])
}

func TestAssign(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fresh := entity.Assign(&entity.User{Name: "Ana"}, "u1", now)
	assert.Equal(t, "u1", fresh.EntityID())
	assert.Equal(t, now, fresh.Created())

	existing := &entity.User{Meta: entity.Meta{ID: "keep", CreatedAt: now.Add(-time.Hour)}}
	kept := entity.Assign(existing, "u2", now)
	assert.Equal(t, "keep", kept.EntityID())
	assert.Equal(t, now.Add(-time.Hour), kept.Created())
}

func TestSetDone(t *testing.T) {
	a := &entity.Activity{ItemBase: entity.ItemBase{TripID: "t1"}, Description: "Museum"}
	done := entity.SetDone(a, true)

	assert.True(t, done.IsDone())
	assert.False(t, a.IsDone())
}

func TestExportTrip(t *testing.T) {
	trip := &entity.Trip{
		Meta:        entity.Meta{ID: "t1", CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		UserID:      "u1",
		Destination: "Lisbon",
		StartDate:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Budget:      1000,
		ShareCode:   "ABC123",
	}
	rec := trip.Export()

	assert.Equal(t, "t1", rec["id"])
	assert.Equal(t, "trip", rec["kind"])
	assert.Equal(t, "2025-01-02T03:04:05Z", rec["created_at"])
	assert.Equal(t, "2025-05-01", rec["start_date"])
	assert.Equal(t, "", rec["end_date"])
	assert.Equal(t, 1000.0, rec["budget"])
	assert.Equal(t, "ABC123", rec["share_code"])
}

func TestRef(t *testing.T) {
	assert.True(t, entity.Ref{}.IsZero())
	assert.Equal(t, "", entity.Ref{}.String())
	assert.Equal(t, "trip/t1", entity.Ref{Kind: entity.KindTrip, ID: "t1"}.String())
	assert.True(t, (&entity.User{}).Owner().IsZero())
}
