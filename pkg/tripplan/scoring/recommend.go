package scoring

import (
	"maps"
	"slices"
	"strings"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
)

// Strategy scores one candidate for one user. Implementations must be pure
// and deterministic for fixed inputs.
type Strategy interface {
	Name() string
	Score(prefs Preferences, profile Profile, c Candidate) float64
}

// Recommendation score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Climate scores how well the candidate's climate matches the preferred
// one: 70 on a match and 30 otherwise.
type Climate struct {
	settings config.ScoringSettings
}

// NewClimate creates a climate strategy using the destination table in s.
func NewClimate(s config.ScoringSettings) Climate {
	return Climate{settings: s}
}

// Name returns "climate".
func (Climate) Name() string { return "climate" }

// Score implements Strategy.
func (s Climate) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	want := prefs.climate(profile)
	have := firstNonEmpty(c.Climate, s.settings.ClimateOf(c.Destination))
	if want == "" || have == "" {
		return s.settings.Neutral
	}
	if want == have {
		return 70
	}
	return 30
}

// Budget scores how well the candidate's cost level fits the user's budget
// level. A low budget only fits low-cost places; medium fits low and
// medium; high fits medium and high.
type Budget struct {
	settings config.ScoringSettings
}

// NewBudget creates a budget-fit strategy using the cost table in s.
func NewBudget(s config.ScoringSettings) Budget {
	return Budget{settings: s}
}

// Name returns "budget".
func (Budget) Name() string { return "budget" }

var budgetFit = map[string]struct {
	levels []string
	score  float64
}{
	"low":    {[]string{"low"}, 70},
	"medium": {[]string{"low", "medium"}, 65},
	"high":   {[]string{"medium", "high"}, 60},
}

// Score implements Strategy.
func (s Budget) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	want := prefs.budgetLevel(profile)
	have := firstNonEmpty(c.CostLevel, s.settings.CostLevelOf(c.Destination))
	fit, known := budgetFit[want]
	if !known || have == "" {
		return s.settings.Neutral
	}
	if slices.Contains(fit.levels, have) {
		return fit.score
	}
	return 25
}

// Interest scores the overlap between the user's interests and the
// candidate's tags: 70 when a tag matches, 65 when only the candidate's
// category matches and 35 otherwise.
type Interest struct {
	settings config.ScoringSettings
}

// NewInterest creates an interest strategy using the tag table in s.
func NewInterest(s config.ScoringSettings) Interest {
	return Interest{settings: s}
}

// Name returns "interest".
func (Interest) Name() string { return "interest" }

// Score implements Strategy.
func (s Interest) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	want := prefs.interests(profile)
	tags := c.Tags
	if len(tags) == 0 {
		tags = s.settings.InterestsOf(c.Destination)
	}
	category := strings.ToLower(c.Category)
	if len(want) == 0 || (len(tags) == 0 && category == "") {
		return s.settings.Neutral
	}
	for _, tag := range tags {
		if slices.Contains(want, strings.ToLower(tag)) {
			return 70
		}
	}
	if category != "" && slices.Contains(want, category) {
		return 65
	}
	return 35
}

// Weighted pairs a strategy with its weight in a Hybrid.
type Weighted struct {
	Strategy Strategy
	Weight   float64
}

// Hybrid combines strategies as a weighted mean. Weights need not sum to
// one; they are normalised by their sum. Non-positive weights are ignored.
type Hybrid struct {
	parts   []Weighted
	total   float64
	neutral float64
}

// Combine creates a hybrid of parts. With no positive weight the hybrid
// scores every candidate neutral.
func Combine(neutral float64, parts ...Weighted) Hybrid {
	h := Hybrid{neutral: neutral}
	for _, p := range parts {
		if p.Strategy == nil || p.Weight <= 0 {
			continue
		}
		h.parts = append(h.parts, p)
		h.total += p.Weight
	}
	return h
}

// NewHybrid combines the climate, budget and interest strategies with the
// weights in s. Weight keys naming other strategies are ignored.
func NewHybrid(s config.ScoringSettings) Hybrid {
	components := map[string]Strategy{
		"climate":  NewClimate(s),
		"budget":   NewBudget(s),
		"interest": NewInterest(s),
	}
	var parts []Weighted
	for _, name := range slices.Sorted(maps.Keys(components)) {
		parts = append(parts, Weighted{Strategy: components[name], Weight: s.Weights[name]})
	}
	return Combine(s.Neutral, parts...)
}

// Name returns "hybrid".
func (Hybrid) Name() string { return "hybrid" }

// Weights returns the normalised weight of each component by name.
func (h Hybrid) Weights() map[string]float64 {
	out := make(map[string]float64, len(h.parts))
	for _, p := range h.parts {
		out[p.Strategy.Name()] += p.Weight / h.total
	}
	return out
}

// Score implements Strategy.
func (h Hybrid) Score(prefs Preferences, profile Profile, c Candidate) float64 {
	if h.total == 0 {
		return h.neutral
	}
	var sum float64
	for _, p := range h.parts {
		sum += p.Weight * p.Strategy.Score(prefs, profile, c)
	}
	return clamp(sum / h.total)
}

func clamp(v float64) float64 {
	return min(max(v, MinScore), MaxScore)
}
