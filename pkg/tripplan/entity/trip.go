package entity

import (
	"slices"
	"time"
)

// Trip is a planned journey owned by a user.
type Trip struct {
	Meta          `mapstructure:",squash"`
	UserID        string    `mapstructure:"user_id"`
	Name          string    `mapstructure:"name"`
	Destination   string    `mapstructure:"destination"`
	StartDate     time.Time `mapstructure:"start_date"`
	EndDate       time.Time `mapstructure:"end_date"`
	Budget        float64   `mapstructure:"budget"`
	ShareCode     string    `mapstructure:"share_code"`
	Collaborators []string  `mapstructure:"collaborators"`
	ItemIDs       []string  `mapstructure:"item_ids"`
	IsSuggestion  bool      `mapstructure:"is_suggestion"`
}

// EntityKind returns KindTrip.
func (*Trip) EntityKind() Kind { return KindTrip }

// Owner returns the owning user.
func (t *Trip) Owner() Ref { return Ref{Kind: KindUser, ID: t.UserID} }

// HasCollaborator reports whether userID was invited to the trip.
func (t *Trip) HasCollaborator(userID string) bool {
	return slices.Contains(t.Collaborators, userID)
}

// Days returns the number of whole days between the start and end dates.
// It is zero when either date is missing.
func (t *Trip) Days() int {
	if t.StartDate.IsZero() || t.EndDate.IsZero() || t.EndDate.Before(t.StartDate) {
		return 0
	}
	return int(t.EndDate.Sub(t.StartDate).Hours() / 24)
}

// Export returns the trip as a plain record.
func (t *Trip) Export() map[string]any {
	rec := t.Meta.export(KindTrip)
	rec["user_id"] = t.UserID
	rec["name"] = t.Name
	rec["destination"] = t.Destination
	rec["start_date"] = formatDate(t.StartDate)
	rec["end_date"] = formatDate(t.EndDate)
	rec["budget"] = t.Budget
	rec["share_code"] = t.ShareCode
	rec["collaborators"] = slices.Clone(t.Collaborators)
	rec["item_ids"] = slices.Clone(t.ItemIDs)
	rec["is_suggestion"] = t.IsSuggestion
	return rec
}

// User is a planner account. Users own trips and user-scoped items.
type User struct {
	Meta  `mapstructure:",squash"`
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// EntityKind returns KindUser.
func (*User) EntityKind() Kind { return KindUser }

// Owner returns the zero Ref; users are roots.
func (*User) Owner() Ref { return Ref{} }

// Export returns the user as a plain record.
func (u *User) Export() map[string]any {
	rec := u.Meta.export(KindUser)
	rec["name"] = u.Name
	rec["email"] = u.Email
	return rec
}
