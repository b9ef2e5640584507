package event_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
)

type deliveryCounter struct {
	ok, failed int
}

func (d *deliveryCounter) RecordOperation(context.Context, string, string, time.Duration) {}
func (d *deliveryCounter) RecordValidation(context.Context, string, bool, int)            {}
func (d *deliveryCounter) RecordRanking(context.Context, string, int, time.Duration)      {}

func (d *deliveryCounter) RecordDelivery(_ context.Context, _ string, failed bool) {
	if failed {
		d.failed++
		return
	}
	d.ok++
}

func quietBus(cfg event.BusConfig) *event.Bus {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	return event.NewBus(cfg)
}

func recorder(name string, order *[]string) event.Handler {
	return event.HandlerFunc(func(context.Context, event.Event) error {
		*order = append(*order, name)
		return nil
	})
}

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := quietBus(event.BusConfig{})
	var order []string
	bus.SubscribeAll("a", recorder("a", &order))
	bus.SubscribeAll("b", recorder("b", &order))
	bus.SubscribeAll("c", recorder("c", &order))

	n := bus.Publish(context.Background(), event.New(event.TripCreated, "test", nil))

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, bus.Subscribers())
}

func TestBusTypeFilter(t *testing.T) {
	bus := quietBus(event.BusConfig{})
	var order []string
	bus.Subscribe("trips", []event.Type{event.TripCreated, event.TripDeleted}, recorder("trips", &order))
	bus.Subscribe("items", []event.Type{event.ItemAdded}, recorder("items", &order))

	bus.Publish(context.Background(), event.New(event.TripCreated, "test", nil))
	bus.Publish(context.Background(), event.New(event.ItemAdded, "test", nil))
	bus.Publish(context.Background(), event.New(event.UserCreated, "test", nil))

	assert.Equal(t, []string{"trips", "items"}, order)
}

func TestBusIsolatesFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  event.Handler
		panicked bool
	}{
		{
			name: "error",
			handler: event.HandlerFunc(func(context.Context, event.Event) error {
				return errors.New("boom")
			}),
		},
		{
			name: "panic",
			handler: event.HandlerFunc(func(context.Context, event.Event) error {
				panic("kaboom")
			}),
			panicked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &deliveryCounter{}
			var hookErr error
			bus := quietBus(event.BusConfig{
				Metrics: metrics,
				OnError: func(_ event.Event, _ string, err error) { hookErr = err },
			})

			var order []string
			bus.SubscribeAll("first", recorder("first", &order))
			bus.SubscribeAll("bad", tt.handler)
			bus.SubscribeAll("last", recorder("last", &order))

			evt := event.New(event.TripUpdated, "test", nil)
			var n int
			require.NotPanics(t, func() {
				n = bus.Publish(context.Background(), evt)
			})

			assert.Equal(t, 2, n)
			assert.Equal(t, []string{"first", "last"}, order)
			assert.Equal(t, 2, metrics.ok)
			assert.Equal(t, 1, metrics.failed)

			failures := bus.Failures()
			require.Len(t, failures, 1)
			assert.Equal(t, "bad", failures[0].Subscriber)
			assert.Equal(t, evt.ID, failures[0].EventID)
			assert.Equal(t, tt.panicked, failures[0].Panicked)

			var de *event.DeliveryError
			require.ErrorAs(t, hookErr, &de)
			assert.Equal(t, "bad", de.Subscriber)
		})
	}
}

func TestBusOnErrorPanicIsContained(t *testing.T) {
	bus := quietBus(event.BusConfig{
		OnError: func(event.Event, string, error) { panic("hook") },
	})
	bus.SubscribeAll("bad", event.HandlerFunc(func(context.Context, event.Event) error {
		return errors.New("boom")
	}))

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.New(event.TripCreated, "test", nil))
	})
}

func TestBusPauseResumeUnsubscribe(t *testing.T) {
	bus := quietBus(event.BusConfig{})
	var order []string
	sub := bus.SubscribeAll("s", recorder("s", &order))
	ctx := context.Background()

	sub.Pause()
	assert.True(t, sub.IsPaused())
	bus.Publish(ctx, event.New(event.TripCreated, "test", nil))
	assert.Empty(t, order)

	sub.Resume()
	bus.Publish(ctx, event.New(event.TripCreated, "test", nil))
	assert.Len(t, order, 1)

	sub.Unsubscribe()
	bus.Publish(ctx, event.New(event.TripCreated, "test", nil))
	assert.Len(t, order, 1)
	assert.Empty(t, bus.Subscribers())
}

func TestBusSubscriberCannotMutateOthersPayload(t *testing.T) {
	bus := quietBus(event.BusConfig{})
	bus.SubscribeAll("mutator", event.HandlerFunc(func(_ context.Context, evt event.Event) error {
		evt.Payload["trip_id"] = "hijacked"
		return nil
	}))
	var seen string
	bus.SubscribeAll("reader", event.HandlerFunc(func(_ context.Context, evt event.Event) error {
		seen = evt.String("trip_id")
		return nil
	}))

	bus.Publish(context.Background(), event.New(event.TripCreated, "test", map[string]any{"trip_id": "t1"}))
	assert.Equal(t, "t1", seen)
}

func TestBusUnsubscribeDuringPublish(t *testing.T) {
	bus := quietBus(event.BusConfig{})
	var order []string
	var second event.Subscription
	bus.SubscribeAll("first", event.HandlerFunc(func(context.Context, event.Event) error {
		order = append(order, "first")
		second.Unsubscribe()
		return nil
	}))
	second = bus.SubscribeAll("second", recorder("second", &order))

	bus.Publish(context.Background(), event.New(event.TripCreated, "test", nil))
	assert.Equal(t, []string{"first", "second"}, order)

	bus.Publish(context.Background(), event.New(event.TripCreated, "test", nil))
	assert.Equal(t, []string{"first", "second", "first"}, order)
}

func TestFailureLogBounded(t *testing.T) {
	log := event.NewFailureLog(2)
	log.Add(event.Failure{EventID: "1", EventType: event.TripCreated})
	log.Add(event.Failure{EventID: "2", EventType: event.ItemAdded})
	log.Add(event.Failure{EventID: "3", EventType: event.ItemAdded})

	list := log.List()
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].EventID)
	assert.Equal(t, "3", list[1].EventID)
	assert.Equal(t, int64(3), log.Total())
	assert.Equal(t, map[event.Type]int{event.ItemAdded: 2}, log.CountByType())

	log.Clear()
	assert.Equal(t, 0, log.Len())
}
