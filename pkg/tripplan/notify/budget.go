package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
)

// BudgetWatcherName is the subscriber name used by BudgetWatcher.Subscribe.
const BudgetWatcherName = "budget-watcher"

// DefaultBudgetThreshold is the alert threshold of a new BudgetWatcher.
const DefaultBudgetThreshold = 1000.0

// BudgetChange records one budget update.
type BudgetChange struct {
	TripID string
	UserID string
	Old    float64
	New    float64
	At     time.Time
	Alert  bool
}

// Delta returns New minus Old.
func (c BudgetChange) Delta() float64 {
	return c.New - c.Old
}

// BudgetWatcher records budget updates and flags those above a threshold.
type BudgetWatcher struct {
	mu        sync.RWMutex
	threshold float64
	changes   []BudgetChange
	logger    *slog.Logger
	onAlert   func(BudgetChange)
}

// BudgetOption configures a BudgetWatcher.
type BudgetOption func(*BudgetWatcher)

// WithThreshold sets the alert threshold.
func WithThreshold(t float64) BudgetOption {
	return func(w *BudgetWatcher) { w.threshold = t }
}

// WithAlertHook sets a function called for every alerting change.
func WithAlertHook(fn func(BudgetChange)) BudgetOption {
	return func(w *BudgetWatcher) { w.onAlert = fn }
}

// WithBudgetLogger sets the logger used for alerts.
func WithBudgetLogger(l *slog.Logger) BudgetOption {
	return func(w *BudgetWatcher) { w.logger = l }
}

// NewBudgetWatcher creates a watcher.
func NewBudgetWatcher(opts ...BudgetOption) *BudgetWatcher {
	w := &BudgetWatcher{threshold: DefaultBudgetThreshold}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Subscribe registers w on bus for budget updates.
func (w *BudgetWatcher) Subscribe(bus *event.Bus) event.Subscription {
	return bus.Subscribe(BudgetWatcherName, []event.Type{event.TripBudgetUpdated}, w)
}

// SetThreshold changes the alert threshold for later updates.
func (w *BudgetWatcher) SetThreshold(t float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.threshold = t
}

// Threshold returns the current alert threshold.
func (w *BudgetWatcher) Threshold() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.threshold
}

// Handle implements event.Handler.
func (w *BudgetWatcher) Handle(_ context.Context, evt event.Event) error {
	if evt.Type != event.TripBudgetUpdated {
		return nil
	}
	newBudget, _ := evt.Float(event.KeyBudget)
	oldBudget, _ := evt.Float(event.KeyOldBudget)

	w.mu.Lock()
	change := BudgetChange{
		TripID: evt.String(event.KeyTripID),
		UserID: evt.String(event.KeyUserID),
		Old:    oldBudget,
		New:    newBudget,
		At:     evt.Timestamp,
		Alert:  newBudget > w.threshold,
	}
	w.changes = append(w.changes, change)
	threshold := w.threshold
	hook := w.onAlert
	w.mu.Unlock()

	if change.Alert {
		w.logger.Warn("budget above threshold",
			slog.String("trip_id", change.TripID),
			slog.Float64("budget", change.New),
			slog.Float64("threshold", threshold),
		)
		if hook != nil {
			hook(change)
		}
	}
	return nil
}

// History returns the budget changes of tripID, oldest first.
func (w *BudgetWatcher) History(tripID string) []BudgetChange {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []BudgetChange
	for _, c := range w.changes {
		if c.TripID == tripID {
			out = append(out, c)
		}
	}
	return out
}

// Alerts returns every alerting change, oldest first.
func (w *BudgetWatcher) Alerts() []BudgetChange {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []BudgetChange
	for _, c := range w.changes {
		if c.Alert {
			out = append(out, c)
		}
	}
	return out
}
