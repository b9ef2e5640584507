package event

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Type is the event type tag.
type Type string

// Event types raised by the planner.
const (
	TripCreated             Type = "trip.created"
	TripUpdated             Type = "trip.updated"
	TripDeleted             Type = "trip.deleted"
	TripBudgetUpdated       Type = "trip.budget_updated"
	TripCollaboratorInvited Type = "trip.collaborator_invited"
	TripCollaboratorRemoved Type = "trip.collaborator_removed"
	ItemAdded               Type = "item.added"
	ItemUpdated             Type = "item.updated"
	ItemDeleted             Type = "item.deleted"
	ItemStatusChanged       Type = "item.status_changed"
	UserCreated             Type = "user.created"
	OperationUndone         Type = "operation.undone"
	RecommendationGenerated Type = "recommendation.generated"
)

// Payload keys shared by publishers and subscribers.
const (
	KeyOperationID    = "operation_id"
	KeyEntityID       = "entity_id"
	KeyEntityKind     = "entity_kind"
	KeyTripID         = "trip_id"
	KeyUserID         = "user_id"
	KeyDestination    = "destination"
	KeyBudget         = "budget"
	KeyOldBudget      = "old_budget"
	KeyCollaboratorID = "collaborator_id"
	KeyDone           = "done"
	KeyStrategy       = "strategy"
	KeyCount          = "count"
	KeyRecordType     = "recommendation_type"
	KeyUndoneType     = "undone_type"
)

// Event is an immutable record of something that happened. Subscribers
// receive their own copy of the payload map.
type Event struct {
	ID            string
	Type          Type
	Source        string
	Payload       map[string]any
	Timestamp     time.Time
	CorrelationID string // groups events raised by one compound action
	CausationID   string // ID of the event that directly caused this one
}

// Option configures event creation.
type Option func(*Event)

// WithID sets an explicit event ID.
func WithID(id string) Option {
	return func(e *Event) { e.ID = id }
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) Option {
	return func(e *Event) { e.CorrelationID = id }
}

// WithCausationID sets the causation ID.
func WithCausationID(id string) Option {
	return func(e *Event) { e.CausationID = id }
}

// WithTimestamp sets the event timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Event) { e.Timestamp = t }
}

// New creates an event. The payload is copied.
func New(typ Type, source string, payload map[string]any, opts ...Option) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Source:    source,
		Payload:   maps.Clone(payload),
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	// If no correlation ID, use event ID as the root
	if e.CorrelationID == "" {
		e.CorrelationID = e.ID
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return e
}

// NewFromParent creates an event caused by parent. It inherits the
// correlation ID and records the parent as its cause.
func NewFromParent(parent Event, typ Type, source string, payload map[string]any, opts ...Option) Event {
	parentOpts := []Option{
		WithCorrelationID(parent.CorrelationID),
		WithCausationID(parent.ID),
	}
	return New(typ, source, payload, append(parentOpts, opts...)...)
}

// String returns the payload value at key as a string, or "".
func (e Event) String(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// Float returns the payload value at key as a float64.
func (e Event) Float(key string) (float64, bool) {
	switch v := e.Payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (e Event) clone() Event {
	e.Payload = maps.Clone(e.Payload)
	return e
}
