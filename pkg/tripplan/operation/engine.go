package operation

import (
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
	"github.com/randalmurphal/tripplan/pkg/tripplan/validate"
)

// Engine builds operations bound to one store and carries everything they
// need to execute: pipelines, settings, the event bus, the journal and
// observability hooks.
type Engine struct {
	store     *store.Store
	bus       *event.Bus
	pipelines map[Kind]*validate.Chain
	settings  config.Settings
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	journal   journal.Store
	now       func() time.Time
	newID     func() string
	shareCode ShareCodeGenerator
	mutators  map[Kind]mutator
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus sets the bus events are published on. Without one, events are
// built but not delivered.
func WithBus(b *event.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithSettings replaces the default settings. Pipelines built from the
// defaults are rebuilt from s unless WithPipeline overrides them.
func WithSettings(s config.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithPipeline replaces the validation chain of one kind.
func WithPipeline(k Kind, c *validate.Chain) Option {
	return func(e *Engine) {
		if e.pipelines == nil {
			e.pipelines = make(map[Kind]*validate.Chain)
		}
		e.pipelines[k] = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSpanManager sets the tracer.
func WithSpanManager(s observability.SpanManager) Option {
	return func(e *Engine) { e.spans = s }
}

// WithJournal sets the transition journal.
func WithJournal(j journal.Store) Option {
	return func(e *Engine) { e.journal = j }
}

// WithClock sets the clock used for timestamps and date warnings.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the generator for operation ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithShareCodeGenerator sets the share code source.
func WithShareCodeGenerator(gen ShareCodeGenerator) Option {
	return func(e *Engine) { e.shareCode = gen }
}

// NewEngine creates an engine over s.
func NewEngine(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		settings: config.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}

	defaults := DefaultPipelines(e.settings)
	overrides := e.pipelines
	e.pipelines = defaults
	maps.Copy(e.pipelines, overrides)

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = observability.NoopMetrics{}
	}
	if e.spans == nil {
		e.spans = observability.NoopSpanManager{}
	}
	if e.journal == nil {
		e.journal = journal.NopStore{}
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.shareCode == nil {
		e.shareCode = RandomShareCodes(e.settings.ShareCode)
	}
	e.mutators = e.defaultMutators()
	return e
}

// Store returns the store operations are bound to.
func (e *Engine) Store() *store.Store { return e.store }

// Bus returns the event bus, which may be nil.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Settings returns the engine settings.
func (e *Engine) Settings() config.Settings { return e.settings }

// Pipeline returns the validation chain of k.
func (e *Engine) Pipeline(k Kind) *validate.Chain { return e.pipelines[k] }

// New returns a pending operation of kind k over a copy of payload.
func (e *Engine) New(k Kind, payload map[string]any) (*Operation, error) {
	if _, ok := e.mutators[k]; !ok {
		return nil, fmt.Errorf("unknown operation kind %q", k)
	}
	return &Operation{
		id:      e.newID(),
		kind:    k,
		payload: validate.Payload(payload).Clone(),
		engine:  e,
		status:  Pending,
	}, nil
}
