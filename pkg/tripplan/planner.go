package tripplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
	"github.com/randalmurphal/tripplan/pkg/tripplan/notify"
	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
	"github.com/randalmurphal/tripplan/pkg/tripplan/saga"
	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
)

// Planner is the composition root. It is safe for concurrent use.
type Planner struct {
	settings config.Settings
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	now      func() time.Time

	store       *store.Store
	bus         *event.Bus
	journal     journal.Store
	ownsJournal bool
	engine      *operation.Engine
	invoker     *operation.Invoker
	sagas       *saga.Orchestrator
	strategies  *scoring.Registry

	notifications   *notify.Collector
	history         *notify.TripHistory
	budgets         *notify.BudgetWatcher
	recommendations *notify.RecommendationTracker
}

// New builds a Planner. Settings are validated before anything is opened.
func New(opts ...Option) (*Planner, error) {
	cfg := defaultPlannerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = observability.NoopMetrics{}
	}
	if cfg.spans == nil {
		cfg.spans = observability.NoopSpanManager{}
	}
	if cfg.now == nil {
		cfg.now = func() time.Time { return time.Now().UTC() }
	}

	p := &Planner{
		settings: cfg.settings,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		spans:    cfg.spans,
		now:      cfg.now,
		journal:  cfg.journal,
	}

	if p.journal == nil {
		j, err := journal.Open(cfg.settings.Journal)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		p.journal = j
		p.ownsJournal = true
	}

	p.store = cfg.store
	if p.store == nil {
		p.store = store.New(store.WithClock(cfg.now))
	}

	p.bus = event.NewBus(event.BusConfig{
		FailureLogSize: cfg.settings.Events.FailureLogSize,
		Logger:         cfg.logger,
		Metrics:        cfg.metrics,
	})
	p.notifications = notify.NewCollector()
	p.history = notify.NewTripHistory()
	p.budgets = notify.NewBudgetWatcher(append([]notify.BudgetOption{notify.WithBudgetLogger(cfg.logger)}, cfg.budgetOpts...)...)
	p.recommendations = notify.NewRecommendationTracker()
	p.notifications.Subscribe(p.bus)
	p.history.Subscribe(p.bus)
	p.budgets.Subscribe(p.bus)
	p.recommendations.Subscribe(p.bus)

	p.engine = operation.NewEngine(p.store,
		operation.WithBus(p.bus),
		operation.WithSettings(cfg.settings),
		operation.WithLogger(cfg.logger),
		operation.WithMetrics(cfg.metrics),
		operation.WithSpanManager(cfg.spans),
		operation.WithJournal(p.journal),
		operation.WithClock(cfg.now),
	)
	p.invoker = operation.NewInvoker(p.engine, cfg.settings.History.MaxSize)
	p.sagas = saga.NewOrchestrator(p.engine,
		saga.WithStore(saga.NewMemoryStore(cfg.settings.History.MaxSize)),
		saga.WithLogger(cfg.logger),
		saga.WithSpanManager(cfg.spans),
	)
	for _, def := range p.compoundDefinitions() {
		p.sagas.MustRegister(def)
	}

	p.strategies = cfg.strategies
	if p.strategies == nil {
		p.strategies = scoring.DefaultRegistry(cfg.settings)
	}
	return p, nil
}

// Close releases the journal if the Planner opened it.
func (p *Planner) Close() error {
	if !p.ownsJournal {
		return nil
	}
	if err := p.journal.Close(); err != nil && !errors.Is(err, journal.ErrStoreClosed) {
		return err
	}
	return nil
}

// Settings returns the active settings.
func (p *Planner) Settings() config.Settings { return p.settings }

// Store returns the entity store.
func (p *Planner) Store() *store.Store { return p.store }

// Bus returns the event bus.
func (p *Planner) Bus() *event.Bus { return p.bus }

// Journal returns the operation journal.
func (p *Planner) Journal() journal.Store { return p.journal }

// Engine returns the operation engine.
func (p *Planner) Engine() *operation.Engine { return p.engine }

// Invoker returns the operation history.
func (p *Planner) Invoker() *operation.Invoker { return p.invoker }

// Sagas returns the compound action orchestrator.
func (p *Planner) Sagas() *saga.Orchestrator { return p.sagas }

// Strategies returns the scoring registry.
func (p *Planner) Strategies() *scoring.Registry { return p.strategies }

// Notifications returns the per-user notification collector.
func (p *Planner) Notifications() *notify.Collector { return p.notifications }

// History returns the per-trip event timeline.
func (p *Planner) History() *notify.TripHistory { return p.history }

// Budgets returns the budget watcher.
func (p *Planner) Budgets() *notify.BudgetWatcher { return p.budgets }

// Recommendations returns the recommendation tracker.
func (p *Planner) Recommendations() *notify.RecommendationTracker { return p.recommendations }

// Execute runs one operation and records it in the undo history.
func (p *Planner) Execute(ctx context.Context, k operation.Kind, payload map[string]any) (*operation.Operation, error) {
	return p.invoker.Execute(ctx, k, payload)
}

// Undo reverts the most recent operation in the history.
func (p *Planner) Undo(ctx context.Context) (*operation.Operation, error) {
	return p.invoker.Undo(ctx)
}

// Redo re-applies the most recently undone operation.
func (p *Planner) Redo(ctx context.Context) (*operation.Operation, error) {
	return p.invoker.Redo(ctx)
}
