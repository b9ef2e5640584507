package entity

import (
	"maps"
	"slices"
	"time"
)

func tripOwner(b ItemBase) Ref { return Ref{Kind: KindTrip, ID: b.TripID} }

// Flight is a booked or planned flight.
type Flight struct {
	ItemBase  `mapstructure:",squash"`
	Company   string    `mapstructure:"company"`
	Code      string    `mapstructure:"code"`
	Departure time.Time `mapstructure:"departure"`
	Arrival   time.Time `mapstructure:"arrival"`
}

func (*Flight) EntityKind() Kind { return KindFlight }
func (f *Flight) Owner() Ref     { return tripOwner(f.ItemBase) }

func (f *Flight) Export() map[string]any {
	rec := f.ItemBase.export(KindFlight)
	rec["company"] = f.Company
	rec["code"] = f.Code
	rec["departure"] = formatDateTime(f.Departure)
	rec["arrival"] = formatDateTime(f.Arrival)
	return rec
}

// Hotel is an accommodation stay.
type Hotel struct {
	ItemBase `mapstructure:",squash"`
	Name     string    `mapstructure:"name"`
	CheckIn  time.Time `mapstructure:"checkin"`
	CheckOut time.Time `mapstructure:"checkout"`
}

func (*Hotel) EntityKind() Kind { return KindHotel }
func (h *Hotel) Owner() Ref     { return tripOwner(h.ItemBase) }

func (h *Hotel) Export() map[string]any {
	rec := h.ItemBase.export(KindHotel)
	rec["name"] = h.Name
	rec["checkin"] = formatDate(h.CheckIn)
	rec["checkout"] = formatDate(h.CheckOut)
	return rec
}

// Activity is a scheduled thing to do.
type Activity struct {
	ItemBase    `mapstructure:",squash"`
	Description string    `mapstructure:"description"`
	Date        time.Time `mapstructure:"date"`
	Category    string    `mapstructure:"category"`
}

func (*Activity) EntityKind() Kind { return KindActivity }
func (a *Activity) Owner() Ref     { return tripOwner(a.ItemBase) }

func (a *Activity) Export() map[string]any {
	rec := a.ItemBase.export(KindActivity)
	rec["description"] = a.Description
	rec["date"] = formatDate(a.Date)
	rec["category"] = a.Category
	return rec
}

// Expense is money spent or reserved for a trip.
type Expense struct {
	ItemBase    `mapstructure:",squash"`
	Description string    `mapstructure:"description"`
	Amount      float64   `mapstructure:"amount"`
	Currency    string    `mapstructure:"currency"`
	Date        time.Time `mapstructure:"date"`
	Category    string    `mapstructure:"category"`
}

func (*Expense) EntityKind() Kind { return KindExpense }
func (e *Expense) Owner() Ref     { return tripOwner(e.ItemBase) }

func (e *Expense) Export() map[string]any {
	rec := e.ItemBase.export(KindExpense)
	rec["description"] = e.Description
	rec["amount"] = e.Amount
	rec["currency"] = e.Currency
	rec["date"] = formatDate(e.Date)
	rec["category"] = e.Category
	return rec
}

// Guide is a written travel guide attached to a trip.
type Guide struct {
	ItemBase    `mapstructure:",squash"`
	Destination string   `mapstructure:"destination"`
	Title       string   `mapstructure:"title"`
	Content     string   `mapstructure:"content"`
	Category    string   `mapstructure:"category"`
	Tags        []string `mapstructure:"tags"`
	Author      string   `mapstructure:"author"`
}

func (*Guide) EntityKind() Kind { return KindGuide }
func (g *Guide) Owner() Ref     { return tripOwner(g.ItemBase) }

func (g *Guide) Export() map[string]any {
	rec := g.ItemBase.export(KindGuide)
	rec["destination"] = g.Destination
	rec["title"] = g.Title
	rec["content"] = g.Content
	rec["category"] = g.Category
	rec["tags"] = slices.Clone(g.Tags)
	rec["author"] = g.Author
	return rec
}

// Resource is a useful link or contact for a destination.
type Resource struct {
	ItemBase     `mapstructure:",squash"`
	Destination  string            `mapstructure:"destination"`
	Title        string            `mapstructure:"title"`
	ResourceType string            `mapstructure:"resource_type"`
	URL          string            `mapstructure:"url"`
	Description  string            `mapstructure:"description"`
	Contact      map[string]string `mapstructure:"contact_info"`
}

func (*Resource) EntityKind() Kind { return KindResource }
func (r *Resource) Owner() Ref     { return tripOwner(r.ItemBase) }

func (r *Resource) Export() map[string]any {
	rec := r.ItemBase.export(KindResource)
	rec["destination"] = r.Destination
	rec["title"] = r.Title
	rec["resource_type"] = r.ResourceType
	rec["url"] = r.URL
	rec["description"] = r.Description
	rec["contact_info"] = maps.Clone(r.Contact)
	return rec
}

// Review rates another item of the same trip.
type Review struct {
	ItemBase   `mapstructure:",squash"`
	UserID     string `mapstructure:"user_id"`
	TargetKind string `mapstructure:"target_kind"`
	TargetID   string `mapstructure:"target_id"`
	Rating     int    `mapstructure:"rating"`
	Comment    string `mapstructure:"comment"`
}

func (*Review) EntityKind() Kind { return KindReview }
func (r *Review) Owner() Ref     { return tripOwner(r.ItemBase) }

func (r *Review) Export() map[string]any {
	rec := r.ItemBase.export(KindReview)
	rec["user_id"] = r.UserID
	rec["target_kind"] = r.TargetKind
	rec["target_id"] = r.TargetID
	rec["rating"] = r.Rating
	rec["comment"] = r.Comment
	return rec
}

// Contribution is user-submitted content such as a tip.
type Contribution struct {
	ItemBase         `mapstructure:",squash"`
	UserID           string `mapstructure:"user_id"`
	ContributionType string `mapstructure:"contribution_type"`
	Title            string `mapstructure:"title"`
	Content          string `mapstructure:"content"`
	Status           string `mapstructure:"status"`
}

func (*Contribution) EntityKind() Kind { return KindContribution }
func (c *Contribution) Owner() Ref     { return tripOwner(c.ItemBase) }

func (c *Contribution) Export() map[string]any {
	rec := c.ItemBase.export(KindContribution)
	rec["user_id"] = c.UserID
	rec["contribution_type"] = c.ContributionType
	rec["title"] = c.Title
	rec["content"] = c.Content
	rec["status"] = c.Status
	return rec
}

// Preference is a single weighted user preference, for example
// climate=tropical or interests=cultural.
type Preference struct {
	ItemBase       `mapstructure:",squash"`
	UserID         string `mapstructure:"user_id"`
	PreferenceType string `mapstructure:"preference_type"`
	Value          string `mapstructure:"value"`
	Weight         int    `mapstructure:"weight"`
}

func (*Preference) EntityKind() Kind { return KindPreference }
func (p *Preference) Owner() Ref     { return Ref{Kind: KindUser, ID: p.UserID} }

func (p *Preference) Export() map[string]any {
	rec := p.ItemBase.export(KindPreference)
	rec["user_id"] = p.UserID
	rec["preference_type"] = p.PreferenceType
	rec["value"] = p.Value
	rec["weight"] = p.Weight
	return rec
}

// Profile describes how a user likes to travel.
type Profile struct {
	ItemBase            `mapstructure:",squash"`
	UserID              string   `mapstructure:"user_id"`
	Name                string   `mapstructure:"profile_name"`
	TravelStyle         string   `mapstructure:"travel_style"`
	BudgetRange         string   `mapstructure:"budget_range"`
	Interests           []string `mapstructure:"interests"`
	ClimatePreference   string   `mapstructure:"climate_preference"`
	AccommodationStyle  string   `mapstructure:"accommodation_style"`
	TransportPreference string   `mapstructure:"transport_preference"`
}

func (*Profile) EntityKind() Kind { return KindProfile }
func (p *Profile) Owner() Ref     { return Ref{Kind: KindUser, ID: p.UserID} }

func (p *Profile) Export() map[string]any {
	rec := p.ItemBase.export(KindProfile)
	rec["user_id"] = p.UserID
	rec["profile_name"] = p.Name
	rec["travel_style"] = p.TravelStyle
	rec["budget_range"] = p.BudgetRange
	rec["interests"] = slices.Clone(p.Interests)
	rec["climate_preference"] = p.ClimatePreference
	rec["accommodation_style"] = p.AccommodationStyle
	rec["transport_preference"] = p.TransportPreference
	return rec
}

// Recommendation is a scored suggestion produced for a user.
type Recommendation struct {
	ItemBase           `mapstructure:",squash"`
	UserID             string  `mapstructure:"user_id"`
	RecommendationType string  `mapstructure:"recommendation_type"`
	TargetID           string  `mapstructure:"target_id"`
	Score              float64 `mapstructure:"score"`
	Reason             string  `mapstructure:"reason"`
	Accepted           bool    `mapstructure:"accepted"`
}

func (*Recommendation) EntityKind() Kind { return KindRecommendation }
func (r *Recommendation) Owner() Ref     { return Ref{Kind: KindUser, ID: r.UserID} }

func (r *Recommendation) Export() map[string]any {
	rec := r.ItemBase.export(KindRecommendation)
	rec["user_id"] = r.UserID
	rec["recommendation_type"] = r.RecommendationType
	rec["target_id"] = r.TargetID
	rec["score"] = r.Score
	rec["reason"] = r.Reason
	rec["accepted"] = r.Accepted
	return rec
}
