package event

import (
	"fmt"
	"time"
)

// DeliveryError describes a subscriber that failed to handle an event.
type DeliveryError struct {
	EventID    string
	EventType  Type
	Subscriber string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("event %s (%s): subscriber %s: %v", e.EventID, e.EventType, e.Subscriber, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking subscriber.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("subscriber panicked: %v", e.Value)
}

// Failure is one recorded delivery failure.
type Failure struct {
	EventID    string
	EventType  Type
	Subscriber string
	Message    string
	Panicked   bool
	FailedAt   time.Time
}
