package tripplan

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
	"github.com/randalmurphal/tripplan/pkg/tripplan/notify"
	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
)

// plannerConfig holds the dependencies a Planner is built from.
type plannerConfig struct {
	settings   config.Settings
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	journal    journal.Store
	store      *store.Store
	strategies *scoring.Registry
	now        func() time.Time
	budgetOpts []notify.BudgetOption
}

func defaultPlannerConfig() plannerConfig {
	return plannerConfig{
		settings: config.DefaultSettings(),
	}
}

// Option configures a Planner.
type Option func(*plannerConfig)

// WithSettings replaces the default settings.
func WithSettings(s config.Settings) Option {
	return func(c *plannerConfig) { c.settings = s }
}

// WithLogger sets the logger shared by every component.
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(c *plannerConfig) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *plannerConfig) { c.metrics = m }
}

// WithSpanManager sets the tracer.
// Default: observability.NoopSpanManager{}
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *plannerConfig) { c.spans = s }
}

// WithJournal sets the operation journal. The Planner does not close a
// journal it was given. When unset, the journal is opened from the
// settings and closed by Planner.Close.
func WithJournal(j journal.Store) Option {
	return func(c *plannerConfig) { c.journal = j }
}

// WithStore sets the entity store. Use it to share one store between
// planners or to control ids and timestamps in tests.
func WithStore(s *store.Store) Option {
	return func(c *plannerConfig) { c.store = s }
}

// WithStrategies replaces the default strategy registry.
func WithStrategies(r *scoring.Registry) Option {
	return func(c *plannerConfig) { c.strategies = r }
}

// WithClock sets the time source of operations and compound actions.
func WithClock(now func() time.Time) Option {
	return func(c *plannerConfig) { c.now = now }
}

// WithBudgetWatcher configures the budget watcher subscriber.
//
// Example:
//
//	tripplan.New(tripplan.WithBudgetWatcher(notify.WithThreshold(0.5)))
func WithBudgetWatcher(opts ...notify.BudgetOption) Option {
	return func(c *plannerConfig) { c.budgetOpts = append(c.budgetOpts, opts...) }
}
