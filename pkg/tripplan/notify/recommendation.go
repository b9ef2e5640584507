package notify

import (
	"context"
	"sync"

	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
)

// RecommendationTrackerName is the subscriber name used by
// RecommendationTracker.Subscribe.
const RecommendationTrackerName = "recommendation-tracker"

// RecommendationStats summarises generated recommendations.
type RecommendationStats struct {
	Total      int
	ByType     map[string]int
	ByStrategy map[string]int
}

type recommendationRecord struct {
	userID   string
	recType  string
	strategy string
}

// RecommendationTracker counts recommendation.generated events.
type RecommendationTracker struct {
	mu      sync.RWMutex
	records []recommendationRecord
}

// NewRecommendationTracker creates an empty tracker.
func NewRecommendationTracker() *RecommendationTracker {
	return &RecommendationTracker{}
}

// Subscribe registers t on bus for recommendation events.
func (t *RecommendationTracker) Subscribe(bus *event.Bus) event.Subscription {
	return bus.Subscribe(RecommendationTrackerName, []event.Type{event.RecommendationGenerated}, t)
}

// Handle implements event.Handler.
func (t *RecommendationTracker) Handle(_ context.Context, evt event.Event) error {
	if evt.Type != event.RecommendationGenerated {
		return nil
	}
	rec := recommendationRecord{
		userID:   evt.String(event.KeyUserID),
		recType:  evt.String(event.KeyRecordType),
		strategy: evt.String(event.KeyStrategy),
	}
	if rec.recType == "" {
		rec.recType = "unknown"
	}
	if rec.strategy == "" {
		rec.strategy = "unknown"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	return nil
}

// Stats returns statistics for userID, or for everyone when userID is
// empty.
func (t *RecommendationTracker) Stats(userID string) RecommendationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := RecommendationStats{ByType: map[string]int{}, ByStrategy: map[string]int{}}
	for _, r := range t.records {
		if userID != "" && r.userID != userID {
			continue
		}
		stats.Total++
		stats.ByType[r.recType]++
		stats.ByStrategy[r.strategy]++
	}
	return stats
}
