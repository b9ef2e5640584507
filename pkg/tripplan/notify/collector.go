package notify

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
)

// CollectorName is the subscriber name used by Collector.Subscribe.
const CollectorName = "notifications"

// Notification is a message addressed to one user.
type Notification struct {
	ID        int
	EventID   string
	Type      event.Type
	UserID    string
	TripID    string
	Message   string
	Data      map[string]any
	CreatedAt time.Time
	Read      bool
}

// Collector stores a notification for every event that names a user.
type Collector struct {
	mu     sync.RWMutex
	items  []Notification
	nextID int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Subscribe registers c on bus for all event types.
func (c *Collector) Subscribe(bus *event.Bus) event.Subscription {
	return bus.SubscribeAll(CollectorName, c)
}

// Handle implements event.Handler. Events without a user are ignored.
func (c *Collector) Handle(_ context.Context, evt event.Event) error {
	userID := evt.String(event.KeyUserID)
	if userID == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.items = append(c.items, Notification{
		ID:        c.nextID,
		EventID:   evt.ID,
		Type:      evt.Type,
		UserID:    userID,
		TripID:    evt.String(event.KeyTripID),
		Message:   Describe(evt),
		Data:      maps.Clone(evt.Payload),
		CreatedAt: evt.Timestamp,
	})
	return nil
}

// Notifications returns the notifications for userID, oldest first. An
// empty userID matches every user.
func (c *Collector) Notifications(userID string, unreadOnly bool) []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Notification
	for _, n := range c.items {
		if userID != "" && n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		n.Data = maps.Clone(n.Data)
		out = append(out, n)
	}
	return out
}

// Unread returns the number of unread notifications for userID.
func (c *Collector) Unread(userID string) int {
	return len(c.Notifications(userID, true))
}

// MarkRead marks one notification as read.
func (c *Collector) MarkRead(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Read = true
			return nil
		}
	}
	return &tperrors.NotFoundError{Kind: "notification", ID: fmt.Sprint(id)}
}

// MarkAllRead marks every notification for userID as read and returns
// how many changed. An empty userID matches every user.
func (c *Collector) MarkAllRead(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := 0
	for i := range c.items {
		if c.items[i].Read || (userID != "" && c.items[i].UserID != userID) {
			continue
		}
		c.items[i].Read = true
		changed++
	}
	return changed
}

// Clear removes the notifications for userID and returns how many were
// removed. An empty userID clears everything.
func (c *Collector) Clear(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	for _, n := range c.items {
		if userID != "" && n.UserID != userID {
			kept = append(kept, n)
		}
	}
	removed := len(c.items) - len(kept)
	c.items = kept
	return removed
}

// Describe renders a short human-readable message for evt.
func Describe(evt event.Event) string {
	trip := evt.String(event.KeyTripID)
	switch evt.Type {
	case event.TripCreated:
		return fmt.Sprintf("trip to %s created", evt.String(event.KeyDestination))
	case event.TripUpdated:
		return fmt.Sprintf("trip %s updated", trip)
	case event.TripDeleted:
		return fmt.Sprintf("trip %s deleted", trip)
	case event.TripBudgetUpdated:
		b, _ := evt.Float(event.KeyBudget)
		return fmt.Sprintf("budget of trip %s set to %.2f", trip, b)
	case event.TripCollaboratorInvited:
		return fmt.Sprintf("%s invited to trip %s", evt.String(event.KeyCollaboratorID), trip)
	case event.TripCollaboratorRemoved:
		return fmt.Sprintf("%s removed from trip %s", evt.String(event.KeyCollaboratorID), trip)
	case event.ItemAdded:
		return fmt.Sprintf("%s added to trip %s", evt.String(event.KeyEntityKind), trip)
	case event.ItemUpdated:
		return fmt.Sprintf("%s %s updated", evt.String(event.KeyEntityKind), evt.String(event.KeyEntityID))
	case event.ItemDeleted:
		return fmt.Sprintf("%s %s deleted", evt.String(event.KeyEntityKind), evt.String(event.KeyEntityID))
	case event.ItemStatusChanged:
		return fmt.Sprintf("%s %s status changed", evt.String(event.KeyEntityKind), evt.String(event.KeyEntityID))
	case event.UserCreated:
		return "welcome aboard"
	case event.OperationUndone:
		return fmt.Sprintf("%s undone", evt.String(event.KeyUndoneType))
	case event.RecommendationGenerated:
		n, _ := evt.Float(event.KeyCount)
		return fmt.Sprintf("%d recommendations generated using %s", int(n), evt.String(event.KeyStrategy))
	}
	return string(evt.Type)
}
