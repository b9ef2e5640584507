package operation

import (
	"fmt"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
)

// Kind identifies a business operation.
type Kind string

// Supported operation kinds.
const (
	TripCreate             Kind = "trip.create"
	TripUpdate             Kind = "trip.update"
	TripDelete             Kind = "trip.delete"
	TripUpdateBudget       Kind = "trip.update_budget"
	TripInviteCollaborator Kind = "trip.invite_collaborator"
	TripRemoveCollaborator Kind = "trip.remove_collaborator"
	ItemAdd                Kind = "item.add"
	ItemUpdate             Kind = "item.update"
	ItemDelete             Kind = "item.delete"
	ItemSetStatus          Kind = "item.set_status"
	UserCreate             Kind = "user.create"
)

// Kinds returns every operation kind.
func Kinds() []Kind {
	return []Kind{
		TripCreate, TripUpdate, TripDelete, TripUpdateBudget,
		TripInviteCollaborator, TripRemoveCollaborator,
		ItemAdd, ItemUpdate, ItemDelete, ItemSetStatus,
		UserCreate,
	}
}

// ParseKind converts s to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if k.Target() == "" && !k.IsItem() {
		return "", fmt.Errorf("unknown operation kind %q", s)
	}
	return k, nil
}

// IsItem reports whether k acts on an itinerary item selected by the
// item_type payload field.
func (k Kind) IsItem() bool {
	switch k {
	case ItemAdd, ItemUpdate, ItemDelete, ItemSetStatus:
		return true
	}
	return false
}

// Target returns the entity kind k acts on. Item kinds return "" because
// their target comes from the payload; see Operation.Target.
func (k Kind) Target() entity.Kind {
	switch k {
	case TripCreate, TripUpdate, TripDelete, TripUpdateBudget,
		TripInviteCollaborator, TripRemoveCollaborator:
		return entity.KindTrip
	case UserCreate:
		return entity.KindUser
	}
	return ""
}

func (k Kind) String() string { return string(k) }

// Status is the lifecycle state of an Operation.
type Status string

// Lifecycle states. Pending moves to Executed or Failed; Executed moves to
// Undone. Failed and Undone are terminal.
const (
	Pending  Status = "pending"
	Executed Status = "executed"
	Failed   Status = "failed"
	Undone   Status = "undone"
)

func (s Status) String() string { return string(s) }

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == Failed || s == Undone
}
