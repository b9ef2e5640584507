// Package validate implements the payload validation pipeline.
//
// A Chain runs Handlers in a fixed order. Each handler inspects the payload
// and returns a Step carrying error messages, warnings and normalised fields.
// Normalised fields are merged into the payload seen by later handlers. The
// chain stops at the first handler that reports an error and returns the
// partial Result immediately; handlers after it never run.
//
// Handlers are pure functions of the payload and Context. They never touch
// the entity store, so referential checks belong to the operation engine.
//
//	chain := validate.NewBuilder().
//		Sanitize().
//		Require("destination", "start_date", "end_date").
//		Dates("start_date", "end_date").
//		DateOrder("start_date", "end_date").
//		Build()
//
//	res := chain.Process(payload, validate.Context{Operation: "trip.create"})
//	if !res.Success {
//		return res.Err("trip.create")
//	}
package validate

import (
	"slices"
	"time"

	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
)

// Context is shared by every handler in one chain run.
type Context struct {
	// Operation names the operation being validated.
	Operation string

	// Layouts overrides the accepted date layouts. Nil uses DefaultLayouts.
	Layouts []string

	// Now is the reference time for handlers that need one.
	Now time.Time
}

func (c Context) layouts() []string {
	if len(c.Layouts) > 0 {
		return c.Layouts
	}
	return DefaultLayouts
}

// Handler is one check or normaliser in a chain.
type Handler interface {
	Name() string
	Process(p Payload, ctx Context) Step
}

// Step is the contribution of a single handler.
type Step struct {
	Errors   []string
	Warnings []string
	Set      map[string]any
	Remove   []string
}

// Pass returns an empty successful step.
func Pass() Step { return Step{} }

// Fail returns a step reporting msgs.
func Fail(msgs ...string) Step { return Step{Errors: msgs} }

// Failed reports whether the step carries errors.
func (s Step) Failed() bool { return len(s.Errors) > 0 }

// With returns a copy of s that sets key to value.
func (s Step) With(key string, value any) Step {
	set := make(map[string]any, len(s.Set)+1)
	for k, v := range s.Set {
		set[k] = v
	}
	set[key] = value
	s.Set = set
	return s
}

// Warn returns a copy of s with msg appended to its warnings.
func (s Step) Warn(msg string) Step {
	s.Warnings = append(slices.Clone(s.Warnings), msg)
	return s
}

// Result is the outcome of a chain run. It is never modified after
// Process returns.
type Result struct {
	Success     bool
	Errors      []string
	Warnings    []string
	ProcessedBy []string
	Data        Payload
}

// Err returns a *errors.ValidationError for a failed result and nil
// otherwise.
func (r Result) Err(operation string) error {
	if r.Success {
		return nil
	}
	return &tperrors.ValidationError{Operation: operation, Messages: slices.Clone(r.Errors)}
}

// Chain is an ordered, immutable list of handlers.
type Chain struct {
	handlers []Handler
}

// NewChain creates a chain running handlers in the given order.
func NewChain(handlers ...Handler) *Chain {
	return &Chain{handlers: slices.Clone(handlers)}
}

// Then returns a new chain with extra handlers appended.
func (c *Chain) Then(handlers ...Handler) *Chain {
	return &Chain{handlers: append(slices.Clone(c.handlers), handlers...)}
}

// Names returns the handler names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.handlers))
	for i, h := range c.handlers {
		names[i] = h.Name()
	}
	return names
}

// Len returns the number of handlers.
func (c *Chain) Len() int {
	return len(c.handlers)
}

// Process runs the chain over a copy of p. A nil or empty chain succeeds
// with the payload unchanged.
func (c *Chain) Process(p Payload, ctx Context) Result {
	data := p.Clone()
	res := Result{Success: true}
	if c == nil {
		res.Data = data
		return res
	}

	for _, h := range c.handlers {
		step := h.Process(data.Clone(), ctx)
		res.ProcessedBy = append(res.ProcessedBy, h.Name())
		res.Warnings = append(res.Warnings, step.Warnings...)

		if step.Failed() {
			res.Success = false
			res.Errors = slices.Clone(step.Errors)
			res.Data = data
			return res
		}

		for k, v := range step.Set {
			data[k] = v
		}
		for _, k := range step.Remove {
			delete(data, k)
		}
	}

	res.Data = data
	return res
}
