// Package event provides the planner's synchronous publish/subscribe bus.
//
// Operations publish an [Event] after each successful state change. The
// [Bus] delivers it to every subscriber in registration order on the
// publishing goroutine. Subscriber errors and panics are isolated: they are
// logged, kept in a bounded [FailureLog], and passed to the configured
// OnError hook, but never reach the publisher.
//
//	bus := event.NewBus(event.DefaultBusConfig)
//	bus.Subscribe("history", []event.Type{event.TripCreated}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        log.Println("trip created:", evt.String("trip_id"))
//	        return nil
//	    }))
package event
