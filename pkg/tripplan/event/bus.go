package event

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
)

// Subscription represents an active subscription.
type Subscription interface {
	// ID returns the bus-assigned subscription ID.
	ID() string

	// Name returns the subscriber name given at registration.
	Name() string

	// Unsubscribe removes the subscription.
	Unsubscribe()

	// Pause temporarily stops delivery.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// FailureLogSize bounds the number of retained delivery failures.
	// Default: 100
	FailureLogSize int

	// OnError is called when a subscriber returns an error or panics.
	OnError func(evt Event, subscriber string, err error)

	// Logger receives delivery failures. Default: slog.Default()
	Logger *slog.Logger

	// Metrics records deliveries. Default: no-op
	Metrics observability.MetricsRecorder
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	FailureLogSize: 100,
}

// Bus delivers events synchronously to subscribers in registration order.
// A failing subscriber never prevents delivery to the others and never
// surfaces an error to the publisher.
type Bus struct {
	config BusConfig

	mu   sync.RWMutex
	subs []*subscription

	failures *FailureLog
	nextID   atomic.Int64
}

// NewBus creates a new event bus.
func NewBus(config BusConfig) *Bus {
	if config.FailureLogSize <= 0 {
		config.FailureLogSize = DefaultBusConfig.FailureLogSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	return &Bus{
		config:   config,
		failures: NewFailureLog(config.FailureLogSize),
	}
}

type subscription struct {
	id      string
	name    string
	types   []Type // empty = all types
	handler Handler
	paused  atomic.Bool
	bus     *Bus
}

func (s *subscription) ID() string     { return s.id }
func (s *subscription) Name() string   { return s.name }
func (s *subscription) Pause()         { s.paused.Store(true) }
func (s *subscription) Resume()        { s.paused.Store(false) }
func (s *subscription) IsPaused() bool { return s.paused.Load() }

func (s *subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

func (s *subscription) matches(t Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Subscribe registers handler for the given event types.
func (b *Bus) Subscribe(name string, types []Type, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		id:      "sub-" + strconv.FormatInt(b.nextID.Add(1), 10),
		name:    name,
		types:   slices.Clone(types),
		handler: handler,
		bus:     b,
	}
	b.subs = append(b.subs, sub)
	return sub
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(name string, handler Handler) Subscription {
	return b.Subscribe(name, nil, handler)
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(s *subscription) bool { return s.id == id })
}

// Subscribers returns the names of active subscriptions in registration
// order.
func (b *Bus) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.subs))
	for i, s := range b.subs {
		names[i] = s.name
	}
	return names
}

// Publish delivers evt to every matching, unpaused subscriber and returns
// the number of successful deliveries. Subscriptions added or removed by a
// handler take effect from the next publish.
func (b *Bus) Publish(ctx context.Context, evt Event) int {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.IsPaused() || !sub.matches(evt.Type) {
			continue
		}
		err := b.deliver(ctx, sub, evt)
		b.config.Metrics.RecordDelivery(ctx, string(evt.Type), err != nil)
		if err != nil {
			b.fail(evt, sub.name, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Bus) deliver(ctx context.Context, sub *subscription, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return sub.handler.Handle(ctx, evt.clone())
}

func (b *Bus) fail(evt Event, subscriber string, err error) {
	_, panicked := err.(*PanicError)
	b.failures.Add(Failure{
		EventID:    evt.ID,
		EventType:  evt.Type,
		Subscriber: subscriber,
		Message:    err.Error(),
		Panicked:   panicked,
		FailedAt:   time.Now().UTC(),
	})
	observability.LogDeliveryFailure(b.config.Logger, subscriber, string(evt.Type), err)

	if b.config.OnError != nil {
		func() {
			defer func() { _ = recover() }()
			b.config.OnError(evt, subscriber, &DeliveryError{
				EventID:    evt.ID,
				EventType:  evt.Type,
				Subscriber: subscriber,
				Err:        err,
			})
		}()
	}
}

// Failures returns recorded delivery failures, oldest first.
func (b *Bus) Failures() []Failure {
	return b.failures.List()
}

// FailureLog returns the bus failure log.
func (b *Bus) FailureLog() *FailureLog {
	return b.failures
}
