package notify

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
)

// TripHistoryName is the subscriber name used by TripHistory.Subscribe.
const TripHistoryName = "trip-history"

// Entry is one event in a trip timeline.
type Entry struct {
	EventID string
	Type    event.Type
	UserID  string
	At      time.Time
	Details map[string]any
}

// TripHistory keeps a timeline of events per trip.
type TripHistory struct {
	mu     sync.RWMutex
	byTrip map[string][]Entry
}

// NewTripHistory creates an empty history.
func NewTripHistory() *TripHistory {
	return &TripHistory{byTrip: make(map[string][]Entry)}
}

// Subscribe registers h on bus for all event types.
func (h *TripHistory) Subscribe(bus *event.Bus) event.Subscription {
	return bus.SubscribeAll(TripHistoryName, h)
}

// Handle implements event.Handler. Events without a trip are ignored.
func (h *TripHistory) Handle(_ context.Context, evt event.Event) error {
	tripID := evt.String(event.KeyTripID)
	if tripID == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byTrip[tripID] = append(h.byTrip[tripID], Entry{
		EventID: evt.ID,
		Type:    evt.Type,
		UserID:  evt.String(event.KeyUserID),
		At:      evt.Timestamp,
		Details: maps.Clone(evt.Payload),
	})
	return nil
}

// History returns the timeline of tripID, oldest first.
func (h *TripHistory) History(tripID string) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := h.byTrip[tripID]
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Details = maps.Clone(e.Details)
		out[i] = e
	}
	return out
}
