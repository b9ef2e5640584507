package scoring

import (
	"slices"
	"strings"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
)

// Preference types understood by FromEntities.
const (
	PrefClimate       = "climate"
	PrefBudget        = "budget"
	PrefInterests     = "interests"
	PrefAccommodation = "accommodation_style"
)

// Preferences are the scoring-relevant preference values of one user.
type Preferences struct {
	Climate       string   `yaml:"climate" json:"climate"`
	Budget        string   `yaml:"budget" json:"budget"`
	Interests     []string `yaml:"interests" json:"interests"`
	Accommodation string   `yaml:"accommodation_style" json:"accommodation_style"`
}

// Profile is the travel profile of one user.
type Profile struct {
	TravelStyle        string   `yaml:"travel_style" json:"travel_style"`
	BudgetRange        string   `yaml:"budget_range" json:"budget_range"`
	Interests          []string `yaml:"interests" json:"interests"`
	ClimatePreference  string   `yaml:"climate_preference" json:"climate_preference"`
	AccommodationStyle string   `yaml:"accommodation_style" json:"accommodation_style"`
}

// Candidate is a destination or trip being scored. Climate, CostLevel and
// Tags override the destination tables from settings when set.
type Candidate struct {
	ID          string    `yaml:"id" json:"id"`
	Destination string    `yaml:"destination" json:"destination"`
	Climate     string    `yaml:"climate" json:"climate"`
	CostLevel   string    `yaml:"cost_level" json:"cost_level"`
	Category    string    `yaml:"category" json:"category"`
	Tags        []string  `yaml:"tags" json:"tags"`
	Days        int       `yaml:"days" json:"days"`
	StartDate   time.Time `yaml:"start_date" json:"start_date"`
	EndDate     time.Time `yaml:"end_date" json:"end_date"`
}

// Label returns the candidate id, or its destination when it has none.
func (c Candidate) Label() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Destination
}

// Duration returns the trip length in days: Days when set, otherwise the
// span between the dates. A candidate without either counts as one day.
func (c Candidate) Duration() int {
	if c.Days > 0 {
		return c.Days
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.After(c.StartDate) {
		return int(c.EndDate.Sub(c.StartDate).Hours() / 24)
	}
	return 1
}

// climate returns the user's climate preference.
func (p Preferences) climate(prof Profile) string {
	return firstNonEmpty(p.Climate, prof.ClimatePreference)
}

// budgetLevel returns the user's budget level.
func (p Preferences) budgetLevel(prof Profile) string {
	return firstNonEmpty(p.Budget, prof.BudgetRange)
}

// accommodation returns the user's accommodation style.
func (p Preferences) accommodation(prof Profile) string {
	return firstNonEmpty(p.Accommodation, prof.AccommodationStyle)
}

// interests returns the union of preference and profile interests,
// lower-cased, in first-seen order.
func (p Preferences) interests(prof Profile) []string {
	var out []string
	for _, tag := range slices.Concat(p.Interests, prof.Interests) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// FromEntities materialises scoring inputs from stored preference and
// profile items. When a single-valued preference type appears more than
// once the highest weight wins, earlier entries winning ties. Interest
// preferences accumulate. profile may be nil.
func FromEntities(prefs []*entity.Preference, profile *entity.Profile) (Preferences, Profile) {
	var out Preferences
	weights := map[string]int{}
	pick := func(dst *string, typ string, p *entity.Preference) {
		if w, seen := weights[typ]; seen && p.Weight <= w {
			return
		}
		weights[typ] = p.Weight
		*dst = p.Value
	}

	for _, p := range prefs {
		if p == nil {
			continue
		}
		typ := strings.ToLower(p.PreferenceType)
		switch typ {
		case PrefClimate:
			pick(&out.Climate, typ, p)
		case PrefBudget:
			pick(&out.Budget, typ, p)
		case PrefAccommodation:
			pick(&out.Accommodation, typ, p)
		case PrefInterests, "interest":
			for _, tag := range strings.Split(p.Value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					out.Interests = append(out.Interests, tag)
				}
			}
		}
	}

	var prof Profile
	if profile != nil {
		prof = Profile{
			TravelStyle:        profile.TravelStyle,
			BudgetRange:        profile.BudgetRange,
			Interests:          slices.Clone(profile.Interests),
			ClimatePreference:  profile.ClimatePreference,
			AccommodationStyle: profile.AccommodationStyle,
		}
	}
	return out, prof
}

// TripCandidate turns a stored trip into an estimation candidate.
func TripCandidate(trip *entity.Trip) Candidate {
	return Candidate{
		ID:          trip.ID,
		Destination: trip.Destination,
		StartDate:   trip.StartDate,
		EndDate:     trip.EndDate,
	}
}
