package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/tripplan/pkg/tripplan"
	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
)

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted planning session and print what happened",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.planner()
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDemo(ctx, p, cmd.OutOrStdout())
		},
	}
}

// runDemo creates two users and a complete trip, shares it, records
// spending, undoes a mistake and prints the resulting summary.
func runDemo(ctx context.Context, p *tripplan.Planner, w io.Writer) error {
	say := func(format string, args ...any) { fmt.Fprintf(w, format+"\n", args...) }

	owner, err := p.Execute(ctx, operation.UserCreate, map[string]any{"name": "Ana", "email": "ana@example.com"})
	if err != nil {
		return err
	}
	guest, err := p.Execute(ctx, operation.UserCreate, map[string]any{"name": "Rui", "email": "rui@example.com"})
	if err != nil {
		return err
	}
	ownerID := owner.Entity().EntityID()

	exec, err := p.CreateCompleteTrip(ctx, tripplan.CompleteTrip{
		Trip: tripplan.TripInput{
			UserID:      ownerID,
			Name:        "Spring in Lisbon",
			Destination: "Lisbon",
			StartDate:   "2025-05-01",
			EndDate:     "2025-05-10",
			Budget:      1500,
		},
		Flight: map[string]any{
			"company": "TAP", "code": "TP1351",
			"departure": "2025-05-01T08:00:00", "arrival": "2025-05-01T10:30:00",
		},
		Hotel: map[string]any{"name": "Alfama Inn", "checkin": "2025-05-01", "checkout": "2025-05-10"},
		Activities: []map[string]any{
			{"description": "Tram 28", "date": "2025-05-02"},
			{"description": "Sintra day trip", "date": "2025-05-04"},
		},
	})
	if err != nil {
		return err
	}
	tripID := exec.State.ID(tripplan.StepTrip)
	trip := exec.State[tripplan.StepTrip].(map[string]any)
	say("created trip %s to %s (share code %s) in %d steps", tripID, trip["destination"], trip["share_code"], len(exec.Steps))

	if _, err := p.ShareTrip(ctx, tripID, ownerID, guest.Entity().(*entity.User).Email); err != nil {
		return err
	}
	say("shared with %s", guest.Entity().(*entity.User).Name)

	for _, e := range []struct {
		description string
		amount      float64
	}{{"Hotel deposit", 450}, {"Flights", 320}, {"Souvenirs", 2500}} {
		if _, err := p.Execute(ctx, operation.ItemAdd, map[string]any{
			"item_type": "expense", "trip_id": tripID, "description": e.description, "amount": e.amount,
		}); err != nil {
			return err
		}
	}
	undone, err := p.Undo(ctx)
	if err != nil {
		return err
	}
	say("undid %s: %s", undone.Kind(), undone.Result()["description"])

	if _, err := p.Execute(ctx, operation.ItemSetStatus, map[string]any{
		"item_type": "flight", "item_id": exec.State.ID(tripplan.StepFlight), "done": true,
	}); err != nil {
		return err
	}

	cost, err := p.EstimateTrip(tripID, "category")
	if err != nil {
		return err
	}
	sum, err := p.TripSummary(tripID, ownerID)
	if err != nil {
		return err
	}
	currency := p.Settings().Budget.DefaultCurrency
	say("estimated cost: %s", money(cost, currency))
	say("expenses: %s across %s", money(sum.ExpenseTotal, currency), pluralize(sum.ExpenseCount, "expense"))
	if sum.BudgetRemaining != nil {
		say("budget remaining: %s", money(*sum.BudgetRemaining, currency))
	}
	say("completion: %.0f%%", sum.CompletionPercent)
	say("timeline: %s", pluralize(len(sum.History), "event"))
	say("notifications for %s: %d unread", guest.Entity().(*entity.User).Name, p.Notifications().Unread(guest.Entity().EntityID()))
	return nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}
