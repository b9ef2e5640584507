package scoring

import (
	"maps"
	"slices"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
)

// Estimation strategies implement Strategy with Score returning an
// estimated trip cost instead of a match score.

// DailyRate estimates cost as days times the daily rate of the user's
// budget level, scaled by the destination's cost factor.
type DailyRate struct {
	budget  config.BudgetSettings
	scoring config.ScoringSettings
}

// NewDailyRate creates a daily-rate estimator.
func NewDailyRate(s config.Settings) DailyRate {
	return DailyRate{budget: s.Budget, scoring: s.Scoring}
}

// Name returns "daily".
func (DailyRate) Name() string { return "daily" }

// Score implements Strategy.
func (s DailyRate) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	return float64(c.Duration()) * s.rate(prefs, profile) * s.factor(c)
}

func (s DailyRate) rate(prefs Preferences, profile Profile) float64 {
	if r, ok := s.budget.DailyRates[prefs.budgetLevel(profile)]; ok {
		return r
	}
	return s.budget.DailyRates[s.budget.DefaultLevel]
}

func (s DailyRate) factor(c Candidate) float64 {
	level := firstNonEmpty(c.CostLevel, s.scoring.CostLevelOf(c.Destination))
	if f, ok := s.budget.DestinationFactors[level]; ok {
		return f
	}
	return 1
}

// CategoryBreakdown estimates cost category by category: accommodation is
// charged per night and every other category per day, all scaled by the
// multiplier of the user's budget level.
type CategoryBreakdown struct {
	budget config.BudgetSettings
}

// NewCategoryBreakdown creates a per-category estimator.
func NewCategoryBreakdown(s config.Settings) CategoryBreakdown {
	return CategoryBreakdown{budget: s.Budget}
}

// Name returns "category".
func (CategoryBreakdown) Name() string { return "category" }

// Score implements Strategy.
func (s CategoryBreakdown) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	parts := s.Breakdown(prefs, profile, c)
	var total float64
	for _, category := range slices.Sorted(maps.Keys(parts)) {
		total += parts[category]
	}
	return total
}

// Breakdown returns the estimated cost of each category.
func (s CategoryBreakdown) Breakdown(prefs Preferences, profile Profile, c Candidate) map[string]float64 {
	days := c.Duration()
	nights := max(days-1, 0)
	mult := 1.0
	if m, ok := s.budget.LevelMultipliers[prefs.budgetLevel(profile)]; ok {
		mult = m
	}

	out := make(map[string]float64, len(s.budget.CategoryRates))
	for _, category := range slices.Sorted(maps.Keys(s.budget.CategoryRates)) {
		units := days
		if category == "accommodation" {
			units = nights
		}
		out[category] = s.budget.CategoryRates[category] * float64(units) * mult
	}
	return out
}

// Adaptive starts from the daily-rate estimate and adjusts it for the
// user's travel style and accommodation style.
type Adaptive struct {
	daily  DailyRate
	budget config.BudgetSettings
}

// NewAdaptive creates a profile-adaptive estimator.
func NewAdaptive(s config.Settings) Adaptive {
	return Adaptive{daily: NewDailyRate(s), budget: s.Budget}
}

// Name returns "adaptive".
func (Adaptive) Name() string { return "adaptive" }

// Score implements Strategy.
func (s Adaptive) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	cost := s.daily.Score(prefs, profile, c)
	if m, ok := s.budget.StyleMultipliers[firstNonEmpty(profile.TravelStyle)]; ok {
		cost *= m
	}
	if m, ok := s.budget.AccommodationMultipliers[prefs.accommodation(profile)]; ok {
		cost *= m
	}
	return cost
}
