package tripplan

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strings"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
	"github.com/randalmurphal/tripplan/pkg/tripplan/saga"
	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
)

// Compound action names, as recorded on saga executions.
const (
	SagaTripWithDefaults = "trip-with-defaults"
	SagaCompleteTrip     = "complete-trip"
	SagaDuplicateTrip    = "duplicate-trip"
	SagaAddItems         = "add-items"
)

// Step names shared by the compound actions.
const (
	StepTrip           = "trip"
	StepDefaultExpense = "default-expense"
	StepFlight         = "flight"
	StepHotel          = "hotel"
)

// DefaultExpenseDescription describes the expense seeded by
// CreateTripWithDefaults.
const DefaultExpenseDescription = "Estimated daily costs"

// copiedKinds are the item kinds DuplicateTrip carries over.
var copiedKinds = map[entity.Kind]bool{
	entity.KindFlight:   true,
	entity.KindHotel:    true,
	entity.KindActivity: true,
	entity.KindExpense:  true,
}

// TripInput describes a trip to create.
type TripInput struct {
	UserID      string
	Name        string
	Destination string
	StartDate   string
	EndDate     string
	Budget      float64
	ShareCode   string
}

func (in TripInput) state() saga.State {
	s := saga.State{
		"destination": in.Destination,
		"start_date":  in.StartDate,
		"end_date":    in.EndDate,
		"budget":      in.Budget,
	}
	for k, v := range map[string]string{
		operation.FieldUserID: in.UserID,
		"name":                in.Name,
		"share_code":          in.ShareCode,
	} {
		if v != "" {
			s[k] = v
		}
	}
	return s
}

// CompleteTrip is a trip with the items to create alongside it. Item
// payloads need no item_type or trip_id.
type CompleteTrip struct {
	Trip       TripInput
	Flight     map[string]any
	Hotel      map[string]any
	Activities []map[string]any
}

func (p *Planner) compoundDefinitions() []*saga.Definition {
	return []*saga.Definition{
		{
			Name: SagaTripWithDefaults,
			Steps: []saga.Step{
				{Name: StepTrip, Kind: operation.TripCreate, Build: saga.Input},
				{Name: StepDefaultExpense, Kind: operation.ItemAdd, Build: p.defaultExpense},
			},
		},
	}
}

// defaultExpense seeds the default expense category with the daily-rate
// estimate of the new trip.
func (p *Planner) defaultExpense(s saga.State) (map[string]any, error) {
	tripID := s.ID(StepTrip)
	e, err := p.store.Get(entity.KindTrip, tripID)
	if err != nil {
		return nil, err
	}
	trip := e.(*entity.Trip)

	estimator, err := p.strategies.Lookup("daily", scoring.Estimate)
	if err != nil {
		return nil, err
	}
	prefs, profile := p.userInputs(trip.UserID)
	amount := estimator.Score(prefs, profile, scoring.TripCandidate(trip))

	return map[string]any{
		operation.FieldItemType: string(entity.KindExpense),
		operation.FieldTripID:   tripID,
		"description":           DefaultExpenseDescription,
		"amount":                math.Round(amount*100) / 100,
		"currency":              p.settings.Budget.DefaultCurrency,
		"category":              p.settings.Budget.DefaultCategory,
	}, nil
}

// CreateTripWithDefaults creates a trip and seeds its default expense
// category. Either both are applied or neither is.
func (p *Planner) CreateTripWithDefaults(ctx context.Context, in TripInput) (*saga.Execution, error) {
	return p.sagas.Run(ctx, SagaTripWithDefaults, in.state())
}

// CreateCompleteTrip creates a trip with an optional flight, hotel and
// activities. If any item is rejected, the whole trip is rolled back.
func (p *Planner) CreateCompleteTrip(ctx context.Context, in CompleteTrip) (*saga.Execution, error) {
	def := &saga.Definition{
		Name:  SagaCompleteTrip,
		Steps: []saga.Step{{Name: StepTrip, Kind: operation.TripCreate, Build: saga.Input}},
	}
	if in.Flight != nil {
		def.Steps = append(def.Steps, itemStep(StepFlight, entity.KindFlight, in.Flight, createdTrip))
	}
	if in.Hotel != nil {
		def.Steps = append(def.Steps, itemStep(StepHotel, entity.KindHotel, in.Hotel, createdTrip))
	}
	for i, a := range in.Activities {
		def.Steps = append(def.Steps, itemStep(fmt.Sprintf("activity-%d", i+1), entity.KindActivity, a, createdTrip))
	}
	return p.sagas.RunDefinition(ctx, def, in.Trip.state())
}

// createdTrip and inputTrip locate the trip an item step adds to.
func createdTrip(s saga.State) string { return s.ID(StepTrip) }
func inputTrip(s saga.State) string   { return s.String(operation.FieldTripID) }

// itemStep adds one item of kind to the trip found by tripOf.
func itemStep(name string, kind entity.Kind, fields map[string]any, tripOf func(saga.State) string) saga.Step {
	fields = maps.Clone(fields)
	return saga.Step{
		Name: name,
		Kind: operation.ItemAdd,
		Build: func(s saga.State) (map[string]any, error) {
			payload := maps.Clone(fields)
			payload[operation.FieldItemType] = string(kind)
			payload[operation.FieldTripID] = tripOf(s)
			return payload, nil
		},
	}
}

// ItemBatch lists items to add to an existing trip, one field map per item.
type ItemBatch struct {
	Flights    []map[string]any
	Hotels     []map[string]any
	Activities []map[string]any
	Expenses   []map[string]any
}

// AddItems adds a batch of items to a trip userID owns or collaborates on.
// The step for the n-th item of a kind is named "<kind>-<n>". If any item
// is rejected, none of the batch is kept.
func (p *Planner) AddItems(ctx context.Context, tripID, userID string, batch ItemBatch) (*saga.Execution, error) {
	trip, err := p.trip(tripID)
	if err != nil {
		return nil, err
	}
	if !isMember(trip, userID) {
		return nil, &tperrors.ValidationError{
			Operation: SagaAddItems,
			Messages:  []string{fmt.Sprintf("user %s is not a member of trip %s", userID, tripID)},
		}
	}

	def := &saga.Definition{Name: SagaAddItems}
	for _, group := range []struct {
		kind  entity.Kind
		items []map[string]any
	}{
		{entity.KindFlight, batch.Flights},
		{entity.KindHotel, batch.Hotels},
		{entity.KindActivity, batch.Activities},
		{entity.KindExpense, batch.Expenses},
	} {
		for i, fields := range group.items {
			step := fmt.Sprintf("%s-%d", group.kind, i+1)
			def.Steps = append(def.Steps, itemStep(step, group.kind, fields, inputTrip))
		}
	}
	if len(def.Steps) == 0 {
		return nil, &tperrors.ValidationError{Operation: SagaAddItems, Messages: []string{"batch is empty"}}
	}
	return p.sagas.RunDefinition(ctx, def, saga.State{operation.FieldTripID: tripID, operation.FieldUserID: userID})
}

// DuplicateTrip copies a trip with its flights, hotels, activities and
// expenses into a new trip owned by userID. Only the owner and
// collaborators may duplicate a trip. An empty name becomes the original
// name with a " (copy)" suffix.
func (p *Planner) DuplicateTrip(ctx context.Context, tripID, userID, name string) (*saga.Execution, error) {
	trip, err := p.trip(tripID)
	if err != nil {
		return nil, err
	}
	if !isMember(trip, userID) {
		return nil, &tperrors.ValidationError{
			Operation: SagaDuplicateTrip,
			Messages:  []string{fmt.Sprintf("user %s is not a member of trip %s", userID, tripID)},
		}
	}
	if name == "" {
		name = strings.TrimSpace(firstNonEmpty(trip.Name, trip.Destination) + " (copy)")
	}

	input := TripInput{
		UserID:      userID,
		Name:        name,
		Destination: trip.Destination,
		StartDate:   trip.StartDate.Format("2006-01-02"),
		EndDate:     trip.EndDate.Format("2006-01-02"),
		Budget:      trip.Budget,
	}
	def := &saga.Definition{
		Name:  SagaDuplicateTrip,
		Steps: []saga.Step{{Name: StepTrip, Kind: operation.TripCreate, Build: saga.Input}},
	}

	items := p.tripItems(tripID)
	for i, id := range trip.ItemIDs {
		item, ok := items[id]
		if !ok || !copiedKinds[item.EntityKind()] {
			continue
		}
		step := fmt.Sprintf("%s-%d", item.EntityKind(), i+1)
		def.Steps = append(def.Steps, itemStep(step, item.EntityKind(), copyFields(item), createdTrip))
	}
	return p.sagas.RunDefinition(ctx, def, input.state())
}

// copyFields returns the payload that recreates item in another trip.
func copyFields(item entity.Item) map[string]any {
	out := item.Export()
	for _, k := range []string{"id", "kind", "created_at", operation.FieldTripID, operation.FieldDone} {
		delete(out, k)
	}
	maps.DeleteFunc(out, func(_ string, v any) bool {
		s, isString := v.(string)
		return v == nil || (isString && s == "")
	})
	return out
}

// ShareTrip invites the user registered under email to the trip. Only the
// owner may share a trip. The invitation is recorded in the undo history.
func (p *Planner) ShareTrip(ctx context.Context, tripID, ownerID, email string) (*operation.Operation, error) {
	trip, err := p.trip(tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != ownerID {
		return nil, &tperrors.ValidationError{
			Operation: string(operation.TripInviteCollaborator),
			Messages:  []string{"only the trip owner can share a trip"},
		}
	}
	user, err := p.userByEmail(email)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, operation.TripInviteCollaborator, map[string]any{
		operation.FieldTripID: tripID,
		operation.FieldUserID: user.ID,
	})
}

// CompoundActions returns the recorded compound actions that created or
// worked on tripID, oldest first.
func (p *Planner) CompoundActions(ctx context.Context, tripID string) ([]*saga.Execution, error) {
	return p.sagas.List(ctx, saga.Filter{TripID: tripID})
}

func (p *Planner) trip(id string) (*entity.Trip, error) {
	e, err := p.store.Get(entity.KindTrip, id)
	if err != nil {
		return nil, err
	}
	return e.(*entity.Trip), nil
}

func (p *Planner) userByEmail(email string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	users := p.store.List(entity.KindUser, func(e entity.Entity) bool {
		return strings.EqualFold(e.(*entity.User).Email, email)
	})
	if len(users) == 0 {
		return nil, &tperrors.NotFoundError{Kind: string(entity.KindUser), ID: email}
	}
	return users[0].(*entity.User), nil
}

// tripItems returns every trip-scoped item of the trip, keyed by id.
func (p *Planner) tripItems(tripID string) map[string]entity.Item {
	out := map[string]entity.Item{}
	for _, k := range entity.Kinds() {
		if !k.IsItem() || k.IsUserScoped() {
			continue
		}
		for _, e := range p.store.List(k, func(e entity.Entity) bool {
			return e.(entity.Item).ParentTrip() == tripID
		}) {
			out[e.EntityID()] = e.(entity.Item)
		}
	}
	return out
}

func isMember(trip *entity.Trip, userID string) bool {
	return userID != "" && (trip.UserID == userID || trip.HasCollaborator(userID))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func notFoundTrip(id string) error {
	return &tperrors.NotFoundError{Kind: string(entity.KindTrip), ID: id}
}
