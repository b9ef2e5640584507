package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Settings is the typed planner configuration. Every section has a usable
// default, so a zero-length settings file yields DefaultSettings.
type Settings struct {
	ShareCode ShareCodeSettings
	History   HistorySettings
	Dates     DateSettings
	Scoring   ScoringSettings
	Budget    BudgetSettings
	Events    EventSettings
	Log       LogSettings
	Journal   JournalSettings
}

// ShareCodeSettings controls trip share code generation.
type ShareCodeSettings struct {
	Length      int
	Alphabet    string
	MaxAttempts int
}

// HistorySettings bounds the invoker history.
type HistorySettings struct {
	MaxSize int
}

// DateSettings lists accepted payload date layouts, tried in order.
type DateSettings struct {
	Layouts []string
}

// ScoringSettings configures the recommendation strategies.
type ScoringSettings struct {
	Neutral float64
	Weights map[string]float64

	// Climates maps a climate to destinations that have it.
	Climates map[string][]string
	// CostLevels maps a cost level to destinations priced at it.
	CostLevels map[string][]string
	// Interests maps an interest tag to destinations known for it.
	Interests map[string][]string
}

// BudgetSettings configures estimation strategies and expense handling.
type BudgetSettings struct {
	DefaultLevel             string
	DailyRates               map[string]float64
	DestinationFactors       map[string]float64
	CategoryRates            map[string]float64
	LevelMultipliers         map[string]float64
	StyleMultipliers         map[string]float64
	AccommodationMultipliers map[string]float64
	LargeExpense             float64
	DefaultCategory          string
	DefaultCurrency          string
}

// EventSettings configures the event bus.
type EventSettings struct {
	FailureLogSize int
}

// LogSettings configures the CLI logger.
type LogSettings struct {
	Level  string
	Format string
}

// JournalSettings selects the operation journal backend.
type JournalSettings struct {
	Driver string
	Path   string
}

// Journal drivers.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalSQLite = "sqlite"
)

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		ShareCode: ShareCodeSettings{
			Length:      6,
			Alphabet:    "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
			MaxAttempts: 8,
		},
		History: HistorySettings{MaxSize: 100},
		Dates: DateSettings{
			Layouts: []string{"2006-01-02", "2006-01-02T15:04:05", "02/01/2006"},
		},
		Scoring: ScoringSettings{
			Neutral: 50,
			Weights: map[string]float64{"climate": 0.3, "budget": 0.3, "interest": 0.4},
			Climates: map[string][]string{
				"temperate": {"Madrid", "Paris", "Barcelona", "London"},
				"tropical":  {"Recife", "Rio de Janeiro", "Cancun", "Bangkok"},
				"cold":      {"Reykjavik", "Stockholm", "Oslo"},
			},
			CostLevels: map[string][]string{
				"high": {"Paris", "Tokyo", "New York"},
				"low":  {"Recife", "Bangkok", "Prague"},
			},
			Interests: map[string][]string{
				"cultural": {"Madrid", "Paris", "Rome", "Athens"},
				"nature":   {"Rio de Janeiro", "Costa Rica", "New Zealand"},
			},
		},
		Budget: BudgetSettings{
			DefaultLevel:       "medium",
			DailyRates:         map[string]float64{"low": 50, "medium": 100, "high": 200},
			DestinationFactors: map[string]float64{"low": 0.7, "medium": 1, "high": 1.5},
			CategoryRates: map[string]float64{
				"accommodation": 80,
				"food":          40,
				"transport":     30,
				"activities":    50,
				"shopping":      25,
			},
			LevelMultipliers:         map[string]float64{"low": 0.6, "medium": 1, "high": 1.5},
			StyleMultipliers:         map[string]float64{"backpacker": 0.7, "luxury": 2, "business": 1.5},
			AccommodationMultipliers: map[string]float64{"hostel": 0.8, "luxury_hotel": 1.8},
			LargeExpense:             1_000_000,
			DefaultCategory:          "general",
			DefaultCurrency:          "USD",
		},
		Events:  EventSettings{FailureLogSize: 100},
		Log:     LogSettings{Level: "info", Format: "text"},
		Journal: JournalSettings{Driver: JournalMemory},
	}
}

// SettingsFrom overlays the values present in c on DefaultSettings.
// Map sections replace the default map as a whole.
func SettingsFrom(c Config) Settings {
	d := DefaultSettings()
	return Settings{
		ShareCode: ShareCodeSettings{
			Length:      c.Int("share_code.length", d.ShareCode.Length),
			Alphabet:    c.String("share_code.alphabet", d.ShareCode.Alphabet),
			MaxAttempts: c.Int("share_code.max_attempts", d.ShareCode.MaxAttempts),
		},
		History: HistorySettings{
			MaxSize: c.Int("history.max_size", d.History.MaxSize),
		},
		Dates: DateSettings{
			Layouts: c.StringSlice("dates.layouts", d.Dates.Layouts),
		},
		Scoring: ScoringSettings{
			Neutral:    c.Float("scoring.neutral", d.Scoring.Neutral),
			Weights:    c.FloatMap("scoring.weights", d.Scoring.Weights),
			Climates:   c.StringSliceMap("scoring.climates", d.Scoring.Climates),
			CostLevels: c.StringSliceMap("scoring.cost_levels", d.Scoring.CostLevels),
			Interests:  c.StringSliceMap("scoring.interests", d.Scoring.Interests),
		},
		Budget: BudgetSettings{
			DefaultLevel:             c.String("budget.default_level", d.Budget.DefaultLevel),
			DailyRates:               c.FloatMap("budget.daily_rates", d.Budget.DailyRates),
			DestinationFactors:       c.FloatMap("budget.destination_factors", d.Budget.DestinationFactors),
			CategoryRates:            c.FloatMap("budget.category_rates", d.Budget.CategoryRates),
			LevelMultipliers:         c.FloatMap("budget.level_multipliers", d.Budget.LevelMultipliers),
			StyleMultipliers:         c.FloatMap("budget.style_multipliers", d.Budget.StyleMultipliers),
			AccommodationMultipliers: c.FloatMap("budget.accommodation_multipliers", d.Budget.AccommodationMultipliers),
			LargeExpense:             c.Float("budget.large_expense", d.Budget.LargeExpense),
			DefaultCategory:          c.String("budget.default_category", d.Budget.DefaultCategory),
			DefaultCurrency:          c.String("budget.default_currency", d.Budget.DefaultCurrency),
		},
		Events: EventSettings{
			FailureLogSize: c.Int("events.failure_log_size", d.Events.FailureLogSize),
		},
		Log: LogSettings{
			Level:  c.String("log.level", d.Log.Level),
			Format: c.String("log.format", d.Log.Format),
		},
		Journal: JournalSettings{
			Driver: c.String("journal.driver", d.Journal.Driver),
			Path:   c.String("journal.path", d.Journal.Path),
		},
	}
}

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	var errs []error
	if s.ShareCode.Length < 4 {
		errs = append(errs, fmt.Errorf("share_code.length must be at least 4, got %d", s.ShareCode.Length))
	}
	if len(s.ShareCode.Alphabet) < 2 {
		errs = append(errs, errors.New("share_code.alphabet needs at least two characters"))
	}
	if s.ShareCode.MaxAttempts < 1 {
		errs = append(errs, errors.New("share_code.max_attempts must be positive"))
	}
	if s.History.MaxSize < 0 {
		errs = append(errs, errors.New("history.max_size must not be negative"))
	}
	if len(s.Dates.Layouts) == 0 {
		errs = append(errs, errors.New("dates.layouts must not be empty"))
	}
	for name, w := range s.Scoring.Weights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("scoring.weights.%s must not be negative", name))
		}
	}
	if _, ok := s.Budget.DailyRates[s.Budget.DefaultLevel]; !ok {
		errs = append(errs, fmt.Errorf("budget.default_level %q has no daily rate", s.Budget.DefaultLevel))
	}
	switch s.Journal.Driver {
	case JournalNone, JournalMemory:
	case JournalSQLite:
		if s.Journal.Path == "" {
			errs = append(errs, errors.New("journal.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown journal.driver %q", s.Journal.Driver))
	}
	return errors.Join(errs...)
}

// ClimateOf returns the configured climate of destination, or "".
func (s ScoringSettings) ClimateOf(destination string) string {
	return lookupGroup(s.Climates, destination)
}

// CostLevelOf returns the configured cost level of destination, or "".
func (s ScoringSettings) CostLevelOf(destination string) string {
	return lookupGroup(s.CostLevels, destination)
}

// InterestsOf returns the interest tags associated with destination,
// sorted.
func (s ScoringSettings) InterestsOf(destination string) []string {
	var tags []string
	for _, tag := range slices.Sorted(maps.Keys(s.Interests)) {
		if containsFold(s.Interests[tag], destination) {
			tags = append(tags, tag)
		}
	}
	return tags
}

func lookupGroup(groups map[string][]string, destination string) string {
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		if containsFold(groups[name], destination) {
			return name
		}
	}
	return ""
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
