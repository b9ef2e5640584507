/*
Package tripplan is the decision and orchestration core of a collaborative
trip planner.

# Overview

A Planner wires the pieces together:
  - an entity store that owns every trip, item and user
  - an operation engine that validates payloads, applies reversible
    mutations and raises events
  - an invoker that keeps undo and redo history
  - a saga orchestrator for compound actions that apply fully or not at all
  - a scoring registry of recommendation and budget-estimation strategies
  - an event bus with notification, history and budget subscribers

# Basic Usage

	planner, err := tripplan.New(tripplan.WithLogger(logger))
	if err != nil {
	    log.Fatal(err)
	}
	defer planner.Close()

	op, err := planner.Execute(ctx, operation.TripCreate, map[string]any{
	    "destination": "Lisbon",
	    "start_date":  "2025-05-01",
	    "end_date":    "2025-05-10",
	    "budget":      1000,
	})
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(op.Result()["share_code"])

	// Revert the last operation.
	planner.Undo(ctx)

# Compound Actions

CreateTripWithDefaults, CreateCompleteTrip and DuplicateTrip run as sagas.
When any step fails, the operations already applied are undone in reverse
order and the error names the failing step:

	exec, err := planner.CreateCompleteTrip(ctx, tripplan.CompleteTrip{
	    Trip:   tripplan.TripInput{UserID: "u1", Destination: "Paris", StartDate: "2025-06-01", EndDate: "2025-06-07"},
	    Hotel:  map[string]any{"name": "Le Petit", "checkin": "2025-06-01", "checkout": "2025-06-07"},
	})

# Recommendations

Recommend and Estimate rank candidates with a registered strategy, using
the preferences and profile the user has stored:

	ranked, err := planner.Recommend(ctx, "u1", "hybrid", candidates)
*/
package tripplan
