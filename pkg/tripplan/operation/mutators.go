package operation

import (
	"context"
	"maps"
	"slices"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
	"github.com/randalmurphal/tripplan/pkg/tripplan/validate"
)

// outcome is what a successful mutation produced.
type outcome struct {
	entity    entity.Entity
	eventType event.Type
	extra     map[string]any
}

// mutator applies one operation kind inside a store transaction. The
// payload has already passed the kind's pipeline.
type mutator func(ctx context.Context, m *mutation, p validate.Payload) (outcome, error)

// Payload keys that never reach entity fields through decoding.
var (
	metaKeys        = []string{"id", "created_at"}
	tripCreateDrop  = append(slices.Clone(metaKeys), "share_code", "collaborators", "item_ids", FieldTripID)
	tripUpdateDrop  = append(slices.Clone(metaKeys), FieldUserID, "collaborators", "item_ids", FieldTripID)
	itemAddDrop     = append(slices.Clone(metaKeys), FieldItemType, FieldItemID)
	itemUpdateDrop  = append(slices.Clone(metaKeys), FieldItemType, FieldItemID, FieldTripID, FieldUserID, FieldDone)
	userCreateDrops = metaKeys
)

func (e *Engine) defaultMutators() map[Kind]mutator {
	return map[Kind]mutator{
		TripCreate:             e.createTrip,
		TripUpdate:             updateTrip,
		TripDelete:             deleteTrip,
		TripUpdateBudget:       updateBudget,
		TripInviteCollaborator: inviteCollaborator,
		TripRemoveCollaborator: removeCollaborator,
		ItemAdd:                e.addItem,
		ItemUpdate:             updateItem,
		ItemDelete:             deleteItem,
		ItemSetStatus:          setItemStatus,
		UserCreate:             createUser,
	}
}

func (e *Engine) createTrip(ctx context.Context, m *mutation, p validate.Payload) (outcome, error) {
	trip := &entity.Trip{}
	if err := decode(TripCreate, trip, p, tripCreateDrop); err != nil {
		return outcome{}, err
	}

	var id string
	if code := p.String("share_code"); code != "" {
		trip.ShareCode = code
		var err error
		if id, err = m.put(trip, store.UniqueShareCode(code)); err != nil {
			return outcome{}, err
		}
	} else {
		cfg := tperrors.ConflictRetry
		cfg.MaxAttempts = e.settings.ShareCode.MaxAttempts
		res := tperrors.WithRetry(ctx, cfg, func(_ context.Context, _ int) (string, error) {
			code, err := e.shareCode()
			if err != nil {
				return "", err
			}
			candidate := entity.Clone(trip).(*entity.Trip)
			candidate.ShareCode = code
			return m.put(candidate, store.UniqueShareCode(code))
		})
		if res.Err != nil {
			return outcome{}, res.Err
		}
		id = res.Value
	}

	stored, err := m.get(entity.KindTrip, id)
	if err != nil {
		return outcome{}, err
	}
	return outcome{entity: stored, eventType: event.TripCreated}, nil
}

func updateTrip(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	trip, err := getTrip(m, p.String(FieldTripID))
	if err != nil {
		return outcome{}, err
	}
	if err := decode(TripUpdate, trip, p, tripUpdateDrop); err != nil {
		return outcome{}, err
	}
	if !trip.StartDate.IsZero() && !trip.EndDate.IsZero() && trip.EndDate.Before(trip.StartDate) {
		return outcome{}, &tperrors.ValidationError{
			Operation: string(TripUpdate),
			Messages:  []string{"end_date must not be before start_date"},
		}
	}
	if _, err := m.put(trip, constraintsFor(trip)...); err != nil {
		return outcome{}, err
	}
	return outcome{
		entity:    trip,
		eventType: event.TripUpdated,
		extra:     map[string]any{"fields": changedFields(p, tripUpdateDrop)},
	}, nil
}

func deleteTrip(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	trip, err := getTrip(m, p.String(FieldTripID))
	if err != nil {
		return outcome{}, err
	}

	deleted := 0
	for _, kind := range entity.Kinds() {
		if !kind.IsItem() {
			continue
		}
		items := m.list(kind, func(e entity.Entity) bool {
			it, ok := e.(entity.Item)
			return ok && it.ParentTrip() == trip.ID
		})
		for _, it := range items {
			if _, err := m.delete(kind, it.EntityID()); err != nil {
				return outcome{}, err
			}
			deleted++
		}
	}
	if _, err := m.delete(entity.KindTrip, trip.ID); err != nil {
		return outcome{}, err
	}
	return outcome{
		entity:    trip,
		eventType: event.TripDeleted,
		extra:     map[string]any{"items_deleted": deleted},
	}, nil
}

func updateBudget(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	trip, err := getTrip(m, p.String(FieldTripID))
	if err != nil {
		return outcome{}, err
	}
	budget, _ := p.Float("budget")
	old := trip.Budget
	trip.Budget = budget
	if _, err := m.put(trip, constraintsFor(trip)...); err != nil {
		return outcome{}, err
	}
	return outcome{
		entity:    trip,
		eventType: event.TripBudgetUpdated,
		extra:     map[string]any{event.KeyOldBudget: old},
	}, nil
}

func inviteCollaborator(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	trip, err := getTrip(m, p.String(FieldTripID))
	if err != nil {
		return outcome{}, err
	}
	userID := p.String(FieldUserID)
	if _, err := m.get(entity.KindUser, userID); err != nil {
		return outcome{}, err
	}
	if userID == trip.UserID || trip.HasCollaborator(userID) {
		return outcome{}, &tperrors.ConflictError{Kind: string(entity.KindTrip), Field: "collaborator", Value: userID}
	}
	trip.Collaborators = append(trip.Collaborators, userID)
	if _, err := m.put(trip, constraintsFor(trip)...); err != nil {
		return outcome{}, err
	}
	return outcome{
		entity:    trip,
		eventType: event.TripCollaboratorInvited,
		extra:     collaboratorExtra(trip, userID),
	}, nil
}

func removeCollaborator(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	trip, err := getTrip(m, p.String(FieldTripID))
	if err != nil {
		return outcome{}, err
	}
	userID := p.String(FieldUserID)
	if !trip.HasCollaborator(userID) {
		return outcome{}, &tperrors.NotFoundError{Kind: "collaborator", ID: userID}
	}
	trip.Collaborators = slices.DeleteFunc(trip.Collaborators, func(id string) bool { return id == userID })
	if _, err := m.put(trip, constraintsFor(trip)...); err != nil {
		return outcome{}, err
	}
	return outcome{
		entity:    trip,
		eventType: event.TripCollaboratorRemoved,
		extra:     collaboratorExtra(trip, userID),
	}, nil
}

// collaboratorExtra addresses the event to the collaborator rather than
// the owner.
func collaboratorExtra(trip *entity.Trip, userID string) map[string]any {
	return map[string]any{
		event.KeyCollaboratorID: userID,
		event.KeyUserID:         userID,
		"owner_id":              trip.UserID,
	}
}

func (e *Engine) addItem(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	kind := entity.Kind(p.String(FieldItemType))
	ent, err := entity.New(kind)
	if err != nil {
		return outcome{}, err
	}
	if err := decode(ItemAdd, ent, p, itemAddDrop); err != nil {
		return outcome{}, err
	}
	item := ent.(entity.Item)

	var trip *entity.Trip
	if tripID := item.ParentTrip(); tripID != "" {
		if trip, err = getTrip(m, tripID); err != nil {
			return outcome{}, err
		}
	}
	if err := checkReferences(m, item); err != nil {
		return outcome{}, err
	}
	if exp, ok := item.(*entity.Expense); ok {
		if exp.Currency == "" {
			exp.Currency = e.settings.Budget.DefaultCurrency
		}
		if exp.Category == "" {
			exp.Category = e.settings.Budget.DefaultCategory
		}
	}

	id, err := m.put(item)
	if err != nil {
		return outcome{}, err
	}
	if trip != nil {
		trip.ItemIDs = append(trip.ItemIDs, id)
		if _, err := m.put(trip, constraintsFor(trip)...); err != nil {
			return outcome{}, err
		}
	}

	stored, err := m.get(kind, id)
	if err != nil {
		return outcome{}, err
	}
	return outcome{entity: stored, eventType: event.ItemAdded, extra: ownerExtra(trip, stored)}, nil
}

func updateItem(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	item, err := getItem(m, p)
	if err != nil {
		return outcome{}, err
	}
	if err := decode(ItemUpdate, item, p, itemUpdateDrop); err != nil {
		return outcome{}, err
	}
	if msgs := itemInvariants(item); len(msgs) > 0 {
		return outcome{}, &tperrors.ValidationError{Operation: string(ItemUpdate), Messages: msgs}
	}
	if err := checkReferences(m, item); err != nil {
		return outcome{}, err
	}
	if _, err := m.put(item); err != nil {
		return outcome{}, err
	}
	extra := ownerExtra(parentTrip(m, item), item)
	extra["fields"] = changedFields(p, itemUpdateDrop)
	return outcome{entity: item, eventType: event.ItemUpdated, extra: extra}, nil
}

func deleteItem(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	item, err := getItem(m, p)
	if err != nil {
		return outcome{}, err
	}
	if _, err := m.delete(item.EntityKind(), item.EntityID()); err != nil {
		return outcome{}, err
	}
	trip := parentTrip(m, item)
	if trip != nil && slices.Contains(trip.ItemIDs, item.EntityID()) {
		trip.ItemIDs = slices.DeleteFunc(trip.ItemIDs, func(id string) bool { return id == item.EntityID() })
		if _, err := m.put(trip, constraintsFor(trip)...); err != nil {
			return outcome{}, err
		}
	}
	return outcome{entity: item, eventType: event.ItemDeleted, extra: ownerExtra(trip, item)}, nil
}

func setItemStatus(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	item, err := getItem(m, p)
	if err != nil {
		return outcome{}, err
	}
	done, _ := p[FieldDone].(bool)
	previous := item.IsDone()
	updated := entity.SetDone(item, done)
	if _, err := m.put(updated); err != nil {
		return outcome{}, err
	}
	extra := ownerExtra(parentTrip(m, updated), updated)
	extra[event.KeyDone] = done
	extra["previous_done"] = previous
	return outcome{entity: updated, eventType: event.ItemStatusChanged, extra: extra}, nil
}

func createUser(_ context.Context, m *mutation, p validate.Payload) (outcome, error) {
	user := &entity.User{}
	if err := decode(UserCreate, user, p, userCreateDrops); err != nil {
		return outcome{}, err
	}
	id, err := m.put(user, store.UniqueEmail(user.Email))
	if err != nil {
		return outcome{}, err
	}
	stored, err := m.get(entity.KindUser, id)
	if err != nil {
		return outcome{}, err
	}
	return outcome{entity: stored, eventType: event.UserCreated}, nil
}

func getTrip(m *mutation, id string) (*entity.Trip, error) {
	e, err := m.get(entity.KindTrip, id)
	if err != nil {
		return nil, err
	}
	return e.(*entity.Trip), nil
}

func getItem(m *mutation, p validate.Payload) (entity.Item, error) {
	kind := entity.Kind(p.String(FieldItemType))
	if !kind.IsItem() {
		return nil, &tperrors.ValidationError{Messages: []string{"unsupported item_type: " + string(kind)}}
	}
	e, err := m.get(kind, p.String(FieldItemID))
	if err != nil {
		return nil, err
	}
	return e.(entity.Item), nil
}

// parentTrip returns the item's trip, or nil when it has none or the trip
// no longer exists.
func parentTrip(m *mutation, item entity.Item) *entity.Trip {
	if item.ParentTrip() == "" {
		return nil
	}
	trip, err := getTrip(m, item.ParentTrip())
	if err != nil {
		return nil
	}
	return trip
}

// ownerExtra addresses item events to the trip owner for trip-scoped items.
// User-scoped items are addressed to their user by the default payload.
func ownerExtra(trip *entity.Trip, item entity.Entity) map[string]any {
	extra := map[string]any{}
	if trip != nil && !item.EntityKind().IsUserScoped() {
		extra[event.KeyUserID] = trip.UserID
	}
	return extra
}

// checkReferences verifies that the users and targets an item names exist.
func checkReferences(m *mutation, item entity.Item) error {
	var userID string
	switch v := item.(type) {
	case *entity.Review:
		userID = v.UserID
		kind, err := entity.ParseKind(v.TargetKind)
		if err != nil {
			return &tperrors.ValidationError{Messages: []string{"unsupported target_kind: " + v.TargetKind}}
		}
		if _, err := m.get(kind, v.TargetID); err != nil {
			return err
		}
	case *entity.Contribution:
		userID = v.UserID
	case *entity.Preference:
		userID = v.UserID
	case *entity.Profile:
		userID = v.UserID
	case *entity.Recommendation:
		userID = v.UserID
	}
	if userID == "" {
		return nil
	}
	_, err := m.get(entity.KindUser, userID)
	return err
}

// itemInvariants reports cross-field rules that must hold after an update
// merges new values into stored ones.
func itemInvariants(item entity.Item) []string {
	switch v := item.(type) {
	case *entity.Hotel:
		if !v.CheckIn.IsZero() && !v.CheckOut.IsZero() && !v.CheckOut.After(v.CheckIn) {
			return []string{"checkout must be after checkin"}
		}
	case *entity.Flight:
		if !v.Departure.IsZero() && !v.Arrival.IsZero() && v.Arrival.Before(v.Departure) {
			return []string{"arrival must not be before departure"}
		}
	}
	return nil
}

func decode(k Kind, e entity.Entity, p validate.Payload, drop []string) error {
	fields := maps.Clone(map[string]any(p))
	for _, key := range drop {
		delete(fields, key)
	}
	if err := entity.DecodeInto(e, fields); err != nil {
		return &tperrors.ValidationError{Operation: string(k), Messages: []string{err.Error()}}
	}
	return nil
}

func changedFields(p validate.Payload, drop []string) []string {
	var out []string
	for _, k := range slices.Sorted(maps.Keys(p)) {
		if !slices.Contains(drop, k) {
			out = append(out, k)
		}
	}
	return out
}
