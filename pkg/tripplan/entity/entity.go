// Package entity defines the closed set of entities managed by the planner.
//
// Every variant is a struct embedding Meta and implementing Entity. The
// interface is sealed: only types in this package satisfy it, so the type
// switches in Clone and New cover every variant and a new variant must be
// added to both.
//
// Entities reference each other by id (Ref) and never hold pointers to one
// another. Export produces the plain record used for operation results and
// event payloads.
package entity

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Date layouts used when exporting records.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// Entity is implemented by every stored variant.
type Entity interface {
	EntityID() string
	EntityKind() Kind
	Created() time.Time
	Owner() Ref
	Export() map[string]any

	meta() *Meta
}

// Item is implemented by itinerary item variants.
type Item interface {
	Entity
	ParentTrip() string
	IsDone() bool

	base() *ItemBase
}

// Ref identifies an entity by kind and id.
type Ref struct {
	Kind Kind
	ID   string
}

// IsZero reports whether the reference points at nothing.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.Kind) + "/" + r.ID
}

// Meta holds the identity shared by all variants.
type Meta struct {
	ID        string    `mapstructure:"id"`
	CreatedAt time.Time `mapstructure:"created_at"`
}

// EntityID returns the entity id.
func (m Meta) EntityID() string { return m.ID }

// Created returns the creation timestamp.
func (m Meta) Created() time.Time { return m.CreatedAt }

func (m *Meta) meta() *Meta { return m }

func (m Meta) export(kind Kind) map[string]any {
	rec := map[string]any{
		"id":   m.ID,
		"kind": string(kind),
	}
	if !m.CreatedAt.IsZero() {
		rec["created_at"] = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	return rec
}

// ItemBase is embedded by itinerary item variants.
type ItemBase struct {
	Meta   `mapstructure:",squash"`
	TripID string `mapstructure:"trip_id"`
	Done   bool   `mapstructure:"done"`
}

// ParentTrip returns the id of the trip the item belongs to.
func (b ItemBase) ParentTrip() string { return b.TripID }

// IsDone reports whether the item has been marked done.
func (b ItemBase) IsDone() bool { return b.Done }

func (b *ItemBase) base() *ItemBase { return b }

func (b ItemBase) export(kind Kind) map[string]any {
	rec := b.Meta.export(kind)
	rec["trip_id"] = b.TripID
	rec["done"] = b.Done
	return rec
}

// Assign returns a copy of e carrying id and createdAt where e has none.
func Assign(e Entity, id string, createdAt time.Time) Entity {
	c := Clone(e)
	m := c.meta()
	if m.ID == "" {
		m.ID = id
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = createdAt
	}
	return c
}

// SetDone returns a copy of it with the done flag set.
func SetDone(it Item, done bool) Item {
	c := Clone(it).(Item)
	c.base().Done = done
	return c
}

// New returns a zero value of the variant for kind.
func New(kind Kind) (Entity, error) {
	switch kind {
	case KindTrip:
		return &Trip{}, nil
	case KindUser:
		return &User{}, nil
	case KindFlight:
		return &Flight{}, nil
	case KindHotel:
		return &Hotel{}, nil
	case KindActivity:
		return &Activity{}, nil
	case KindExpense:
		return &Expense{}, nil
	case KindGuide:
		return &Guide{}, nil
	case KindResource:
		return &Resource{}, nil
	case KindReview:
		return &Review{}, nil
	case KindContribution:
		return &Contribution{}, nil
	case KindPreference:
		return &Preference{}, nil
	case KindProfile:
		return &Profile{}, nil
	case KindRecommendation:
		return &Recommendation{}, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// Clone returns a deep copy of e.
func Clone(e Entity) Entity {
	switch v := e.(type) {
	case *Trip:
		c := *v
		c.Collaborators = slices.Clone(v.Collaborators)
		c.ItemIDs = slices.Clone(v.ItemIDs)
		return &c
	case *User:
		c := *v
		return &c
	case *Flight:
		c := *v
		return &c
	case *Hotel:
		c := *v
		return &c
	case *Activity:
		c := *v
		return &c
	case *Expense:
		c := *v
		return &c
	case *Guide:
		c := *v
		c.Tags = slices.Clone(v.Tags)
		return &c
	case *Resource:
		c := *v
		c.Contact = maps.Clone(v.Contact)
		return &c
	case *Review:
		c := *v
		return &c
	case *Contribution:
		c := *v
		return &c
	case *Preference:
		c := *v
		return &c
	case *Profile:
		c := *v
		c.Interests = slices.Clone(v.Interests)
		return &c
	case *Recommendation:
		c := *v
		return &c
	case nil:
		return nil
	}
	panic(fmt.Sprintf("entity: unhandled variant %T", e))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateTimeLayout)
}
