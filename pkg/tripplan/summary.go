package tripplan

import (
	"math"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	"github.com/randalmurphal/tripplan/pkg/tripplan/notify"
)

// progressKinds are the item kinds counted towards trip completion.
var progressKinds = []entity.Kind{entity.KindFlight, entity.KindHotel, entity.KindActivity}

// TripSummary is an overview of one trip.
type TripSummary struct {
	Trip *entity.Trip

	// Items counts the trip's items by kind; Completed counts those marked done.
	Items     map[entity.Kind]int
	Completed map[entity.Kind]int

	// CompletionPercent is the share of done flights, hotels and
	// activities, from 0 to 100. A trip with none of them is at 0.
	CompletionPercent float64

	ExpenseCount int
	ExpenseTotal float64

	// BudgetRemaining is the budget minus expenses. It is nil when the
	// trip has no budget.
	BudgetRemaining *float64

	IsOwner        bool
	IsCollaborator bool

	History []notify.Entry
}

// TripSummary summarises a trip for userID. Only the owner and
// collaborators may read a summary; anyone else gets a NotFound error so
// the trip's existence is not revealed.
func (p *Planner) TripSummary(tripID, userID string) (*TripSummary, error) {
	trip, err := p.trip(tripID)
	if err != nil {
		return nil, err
	}
	if !isMember(trip, userID) {
		return nil, notFoundTrip(tripID)
	}

	sum := &TripSummary{
		Trip:           trip,
		Items:          map[entity.Kind]int{},
		Completed:      map[entity.Kind]int{},
		IsOwner:        trip.UserID == userID,
		IsCollaborator: trip.HasCollaborator(userID),
		History:        p.history.History(tripID),
	}
	for _, item := range p.tripItems(tripID) {
		k := item.EntityKind()
		sum.Items[k]++
		if item.IsDone() {
			sum.Completed[k]++
		}
		if exp, ok := item.(*entity.Expense); ok {
			sum.ExpenseCount++
			sum.ExpenseTotal += exp.Amount
		}
	}

	var total, done int
	for _, k := range progressKinds {
		total += sum.Items[k]
		done += sum.Completed[k]
	}
	if total > 0 {
		sum.CompletionPercent = float64(done) / float64(total) * 100
	}
	if trip.Budget > 0 {
		remaining := trip.Budget - sum.ExpenseTotal
		sum.BudgetRemaining = &remaining
	}
	return sum, nil
}

// Trips returns the trips userID owns or collaborates on, oldest first.
func (p *Planner) Trips(userID string) []*entity.Trip {
	var out []*entity.Trip
	for _, e := range p.store.List(entity.KindTrip, func(e entity.Entity) bool {
		return isMember(e.(*entity.Trip), userID)
	}) {
		out = append(out, e.(*entity.Trip))
	}
	return out
}

// Dashboard limits.
const (
	dashboardRecommendations = 5
	dashboardNotifications   = 5
)

// Dashboard is an overview of everything a user plans.
type Dashboard struct {
	User  *entity.User
	Trips []*entity.Trip

	// Upcoming counts trips starting today or later; Past the rest.
	Upcoming int
	Past     int

	TotalBudget   float64
	AverageBudget float64

	// RecentRecommendations holds the latest stored recommendations,
	// newest first.
	RecentRecommendations []*entity.Recommendation
	Recommendations       notify.RecommendationStats

	// UnreadCount counts every unread notification; Unread keeps the
	// latest few, newest first.
	UnreadCount int
	Unread      []notify.Notification
}

// Dashboard summarises the trips, recommendations and unread
// notifications of userID.
func (p *Planner) Dashboard(userID string) (*Dashboard, error) {
	u, err := p.store.Get(entity.KindUser, userID)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		User:            u.(*entity.User),
		Trips:           p.Trips(userID),
		Recommendations: p.recommendations.Stats(userID),
	}

	today := p.now().UTC().Truncate(24 * time.Hour)
	for _, trip := range d.Trips {
		if trip.StartDate.Before(today) {
			d.Past++
		} else {
			d.Upcoming++
		}
		d.TotalBudget += trip.Budget
	}
	if n := len(d.Trips); n > 0 {
		d.AverageBudget = math.Round(d.TotalBudget/float64(n)*100) / 100
	}

	recs := p.store.List(entity.KindRecommendation, func(e entity.Entity) bool {
		return e.(*entity.Recommendation).UserID == userID
	})
	for i := len(recs) - 1; i >= 0 && len(d.RecentRecommendations) < dashboardRecommendations; i-- {
		d.RecentRecommendations = append(d.RecentRecommendations, recs[i].(*entity.Recommendation))
	}

	unread := p.notifications.Notifications(userID, true)
	d.UnreadCount = len(unread)
	for i := len(unread) - 1; i >= 0 && len(d.Unread) < dashboardNotifications; i-- {
		d.Unread = append(d.Unread, unread[i])
	}
	return d, nil
}
