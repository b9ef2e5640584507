package operation

import (
	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	"github.com/randalmurphal/tripplan/pkg/tripplan/validate"
)

// Payload field names shared by pipelines and mutations.
const (
	FieldTripID   = "trip_id"
	FieldItemID   = "item_id"
	FieldItemType = "item_type"
	FieldUserID   = "user_id"
	FieldDone     = "done"
)

// ItemRequiredFields lists the fields item.add requires for each item type.
var ItemRequiredFields = map[string][]string{
	string(entity.KindFlight):         {FieldTripID, "company", "code", "departure", "arrival"},
	string(entity.KindHotel):          {FieldTripID, "name", "checkin", "checkout"},
	string(entity.KindActivity):       {FieldTripID, "description", "date"},
	string(entity.KindExpense):        {FieldTripID, "description", "amount"},
	string(entity.KindGuide):          {FieldTripID, "destination", "title"},
	string(entity.KindResource):       {FieldTripID, "title", "resource_type"},
	string(entity.KindReview):         {FieldTripID, FieldUserID, "target_kind", "target_id", "rating"},
	string(entity.KindContribution):   {FieldTripID, FieldUserID, "contribution_type", "title"},
	string(entity.KindPreference):     {FieldUserID, "preference_type", "value"},
	string(entity.KindProfile):        {FieldUserID, "profile_name"},
	string(entity.KindRecommendation): {FieldUserID, "recommendation_type", "target_id"},
}

var itemDateFields = []string{"departure", "arrival", "checkin", "checkout", "date"}

// itemTypes maps every item type to no required fields, for operations
// that only need the type to be valid.
func itemTypes() map[string][]string {
	out := make(map[string][]string, len(ItemRequiredFields))
	for k := range ItemRequiredFields {
		out[k] = nil
	}
	return out
}

// DefaultPipelines returns the validation chain of every operation kind.
func DefaultPipelines(s config.Settings) map[Kind]*validate.Chain {
	large := s.Budget.LargeExpense

	return map[Kind]*validate.Chain{
		TripCreate: validate.NewBuilder().
			Sanitize().
			Require("destination", "start_date", "end_date").
			Dates("start_date", "end_date").
			DateOrder("start_date", "end_date").
			NonNegative("budget").
			Use(
				validate.MaxWarning("budget", large),
				validate.PastWarning("start_date"),
				validate.Bool("is_suggestion"),
				validate.TitleCase("destination"),
				validate.UpperCase("share_code"),
			).
			Build(),

		TripUpdate: validate.NewBuilder().
			Sanitize().
			Require(FieldTripID).
			Dates("start_date", "end_date").
			DateOrder("start_date", "end_date").
			NonNegative("budget").
			Use(
				validate.Bool("is_suggestion"),
				validate.TitleCase("destination"),
				validate.UpperCase("share_code"),
			).
			Build(),

		TripDelete: validate.NewBuilder().
			Sanitize().
			Require(FieldTripID).
			Build(),

		TripUpdateBudget: validate.NewBuilder().
			Sanitize().
			Require(FieldTripID, "budget").
			NonNegative("budget").
			Use(validate.MaxWarning("budget", large)).
			Build(),

		TripInviteCollaborator: validate.NewBuilder().
			Sanitize().
			Require(FieldTripID, FieldUserID).
			Build(),

		TripRemoveCollaborator: validate.NewBuilder().
			Sanitize().
			Require(FieldTripID, FieldUserID).
			Build(),

		ItemAdd: validate.NewBuilder().
			Sanitize().
			Use(validate.RequiredByType(FieldItemType, ItemRequiredFields)).
			Dates(itemDateFields...).
			DateOrder("departure", "arrival").
			Use(validate.StrictDateOrder("checkin", "checkout")).
			Positive("amount").
			Use(
				validate.MaxWarning("amount", large),
				validate.Range("rating", 1, 5),
				validate.Range("score", 0, 100),
				validate.NonNegative("weight"),
				validate.Bool(FieldDone, "accepted"),
				validate.UpperCase("code", "currency"),
			).
			Build(),

		ItemUpdate: validate.NewBuilder().
			Sanitize().
			Use(validate.RequiredByType(FieldItemType, itemTypes())).
			Require(FieldItemID).
			Dates(itemDateFields...).
			DateOrder("departure", "arrival").
			Use(validate.StrictDateOrder("checkin", "checkout")).
			Positive("amount").
			Use(
				validate.MaxWarning("amount", large),
				validate.Range("rating", 1, 5),
				validate.Range("score", 0, 100),
				validate.NonNegative("weight"),
				validate.Bool("accepted"),
				validate.UpperCase("code", "currency"),
			).
			Build(),

		ItemDelete: validate.NewBuilder().
			Sanitize().
			Use(validate.RequiredByType(FieldItemType, itemTypes())).
			Require(FieldItemID).
			Build(),

		ItemSetStatus: validate.NewBuilder().
			Sanitize().
			Use(validate.RequiredByType(FieldItemType, itemTypes())).
			Require(FieldItemID, FieldDone).
			Use(validate.Bool(FieldDone)).
			Build(),

		UserCreate: validate.NewBuilder().
			Sanitize().
			Require("name", "email").
			Email("email").
			Build(),
	}
}
