package operation

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/journal"
	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
	"github.com/randalmurphal/tripplan/pkg/tripplan/validate"
)

// Operation is one reversible business mutation. It starts Pending, moves
// to Executed or Failed on Execute, and from Executed to Undone on Undo.
// Methods are safe for concurrent use; of two racing Execute calls exactly
// one runs.
type Operation struct {
	id      string
	kind    Kind
	payload validate.Payload
	engine  *Engine

	mu         sync.Mutex
	status     Status
	validation validate.Result
	entity     entity.Entity
	result     map[string]any
	err        error
	changes    []change
	event      event.Event
	executedAt time.Time
	undoneAt   time.Time
}

// ID returns the operation id.
func (op *Operation) ID() string { return op.id }

// Kind returns the operation kind.
func (op *Operation) Kind() Kind { return op.kind }

// Payload returns a copy of the raw payload.
func (op *Operation) Payload() map[string]any { return op.payload.Clone() }

// Target returns the entity kind acted on, resolving item kinds through
// the item_type payload field.
func (op *Operation) Target() entity.Kind {
	if op.kind.IsItem() {
		return entity.Kind(op.payload.String(FieldItemType))
	}
	return op.kind.Target()
}

// Status returns the lifecycle state.
func (op *Operation) Status() Status {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.status
}

// Result returns the exported entity produced by Execute, or nil.
func (op *Operation) Result() map[string]any {
	op.mu.Lock()
	defer op.mu.Unlock()
	return maps.Clone(op.result)
}

// Entity returns a copy of the entity produced by Execute, or nil.
func (op *Operation) Entity() entity.Entity {
	op.mu.Lock()
	defer op.mu.Unlock()
	return entity.Clone(op.entity)
}

// Err returns the failure recorded by Execute, or nil.
func (op *Operation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

// Validation returns the pipeline result of the last Execute call.
func (op *Operation) Validation() validate.Result {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.validation
}

// Event returns the event published by Execute.
func (op *Operation) Event() event.Event {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.event
}

// ExecutedAt returns when Execute succeeded.
func (op *Operation) ExecutedAt() time.Time {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.executedAt
}

// UndoneAt returns when Undo succeeded.
func (op *Operation) UndoneAt() time.Time {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.undoneAt
}

// Record returns the operation as a plain record.
func (op *Operation) Record() map[string]any {
	op.mu.Lock()
	defer op.mu.Unlock()

	rec := map[string]any{
		"id":           op.id,
		"kind":         string(op.kind),
		"status":       string(op.status),
		"payload":      map[string]any(op.payload.Clone()),
		"result":       maps.Clone(op.result),
		"processed_by": slices.Clone(op.validation.ProcessedBy),
		"warnings":     slices.Clone(op.validation.Warnings),
		"error":        "",
		"executed_at":  "",
		"undone_at":    "",
	}
	if op.err != nil {
		rec["error"] = op.err.Error()
	}
	if !op.executedAt.IsZero() {
		rec["executed_at"] = op.executedAt.Format(time.RFC3339)
	}
	if !op.undoneAt.IsZero() {
		rec["undone_at"] = op.undoneAt.Format(time.RFC3339)
	}
	return rec
}

// Execute validates the payload and applies the mutation. It requires
// status Pending and returns an *errors.InvalidStateError otherwise.
// Validation failures and store errors move the operation to Failed and
// are returned. On success the corresponding event is published.
func (op *Operation) Execute(ctx context.Context) error {
	evt, err := op.execute(ctx)
	if err != nil {
		return err
	}
	op.engine.publish(ctx, evt)
	return nil
}

func (op *Operation) execute(ctx context.Context) (event.Event, error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.status != Pending {
		return event.Event{}, &tperrors.InvalidStateError{Op: "execute", Status: string(op.status), Want: string(Pending)}
	}

	e := op.engine
	kind := string(op.kind)
	ctx, span := e.spans.StartOperationSpan(ctx, kind, op.id)
	logger := observability.EnrichLogger(e.logger, op.id, kind)
	observability.LogOperationStart(logger)
	start := time.Now()

	res := e.pipelines[op.kind].Process(op.payload, validate.Context{
		Operation: kind,
		Layouts:   e.settings.Dates.Layouts,
		Now:       e.now(),
	})
	op.validation = res
	e.metrics.RecordValidation(ctx, kind, res.Success, len(res.ProcessedBy))
	if !res.Success {
		return event.Event{}, op.fail(ctx, span, logger, start, res.Err(kind))
	}

	var out outcome
	err := e.store.Transact(func(tx *store.Tx) error {
		m := newMutation(tx)
		var err error
		if out, err = e.mutators[op.kind](ctx, m, res.Data); err != nil {
			return err
		}
		op.changes = m.changes
		return nil
	})
	if err != nil {
		op.changes = nil
		return event.Event{}, op.fail(ctx, span, logger, start, err)
	}

	op.status = Executed
	op.entity = out.entity
	op.result = out.entity.Export()
	op.executedAt = e.now()
	op.event = event.New(out.eventType, kind, eventPayload(op.id, out), event.WithTimestamp(op.executedAt))

	e.record(logger, journal.Entry{
		OperationID: op.id,
		Kind:        kind,
		Transition:  journal.Executed,
		EntityKind:  string(out.entity.EntityKind()),
		EntityID:    out.entity.EntityID(),
		Timestamp:   op.executedAt,
		Payload:     op.payload,
	})
	elapsed := time.Since(start)
	e.metrics.RecordOperation(ctx, kind, string(Executed), elapsed)
	observability.LogOperationComplete(logger, out.entity.EntityID(), float64(elapsed.Microseconds())/1000)
	e.spans.EndSpanWithError(span, nil)
	return op.event, nil
}

func (op *Operation) fail(ctx context.Context, span trace.Span, logger *slog.Logger, start time.Time, err error) error {
	e := op.engine
	kind := string(op.kind)
	op.status = Failed
	op.err = err

	e.record(logger, journal.Entry{
		OperationID: op.id,
		Kind:        kind,
		Transition:  journal.Failed,
		EntityKind:  string(op.Target()),
		Timestamp:   e.now(),
		Payload:     op.payload,
		Error:       err.Error(),
	})
	e.metrics.RecordOperation(ctx, kind, string(Failed), time.Since(start))
	observability.LogOperationFailed(logger, err)
	e.spans.EndSpanWithError(span, err)
	return err
}

// Undo reverses an executed operation using the state captured during
// Execute: created entities are removed, updated ones restored and deleted
// ones re-inserted. It requires status Executed and returns an
// *errors.InvalidStateError otherwise, without touching the store. If the
// store cannot be restored, for example because a restored share code has
// since been claimed, the error is returned and the status stays Executed.
func (op *Operation) Undo(ctx context.Context) error {
	evt, err := op.undo(ctx)
	if err != nil {
		return err
	}
	op.engine.publish(ctx, evt)
	return nil
}

func (op *Operation) undo(ctx context.Context) (event.Event, error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.status != Executed {
		return event.Event{}, &tperrors.InvalidStateError{Op: "undo", Status: string(op.status), Want: string(Executed)}
	}

	e := op.engine
	kind := string(op.kind)
	ctx, span := e.spans.StartUndoSpan(ctx, kind, op.id)
	logger := observability.EnrichLogger(e.logger, op.id, kind)
	start := time.Now()

	if err := e.store.Transact(func(tx *store.Tx) error {
		return revert(tx, op.changes)
	}); err != nil {
		e.metrics.RecordOperation(ctx, kind, "undo_failed", time.Since(start))
		observability.LogOperationFailed(logger, err)
		e.spans.EndSpanWithError(span, err)
		return event.Event{}, err
	}

	op.status = Undone
	op.undoneAt = e.now()

	payload := map[string]any{
		event.KeyOperationID: op.id,
		event.KeyUndoneType:  string(op.event.Type),
	}
	for _, k := range []string{event.KeyEntityKind, event.KeyEntityID, event.KeyTripID, event.KeyUserID} {
		if v, ok := op.event.Payload[k]; ok {
			payload[k] = v
		}
	}
	evt := event.NewFromParent(op.event, event.OperationUndone, kind, payload, event.WithTimestamp(op.undoneAt))

	e.record(logger, journal.Entry{
		OperationID: op.id,
		Kind:        kind,
		Transition:  journal.Undone,
		EntityKind:  string(op.entity.EntityKind()),
		EntityID:    op.entity.EntityID(),
		Timestamp:   op.undoneAt,
	})
	e.metrics.RecordOperation(ctx, kind, string(Undone), time.Since(start))
	observability.LogOperationUndone(logger)
	e.spans.EndSpanWithError(span, nil)
	return evt, nil
}

// eventPayload builds the payload of the event raised by a successful
// mutation. Extra keys from the mutator win over the defaults.
func eventPayload(opID string, out outcome) map[string]any {
	p := map[string]any{
		event.KeyOperationID: opID,
		event.KeyEntityKind:  string(out.entity.EntityKind()),
		event.KeyEntityID:    out.entity.EntityID(),
	}
	switch v := out.entity.(type) {
	case *entity.Trip:
		p[event.KeyTripID] = v.ID
		p[event.KeyUserID] = v.UserID
		p[event.KeyDestination] = v.Destination
		p[event.KeyBudget] = v.Budget
	case *entity.User:
		p[event.KeyUserID] = v.ID
	case entity.Item:
		if t := v.ParentTrip(); t != "" {
			p[event.KeyTripID] = t
		}
		if owner := v.Owner(); owner.Kind == entity.KindUser {
			p[event.KeyUserID] = owner.ID
		}
	}
	maps.Copy(p, out.extra)
	return p
}

func (e *Engine) publish(ctx context.Context, evt event.Event) {
	if e.bus != nil {
		e.bus.Publish(ctx, evt)
	}
}

func (e *Engine) record(logger *slog.Logger, entry journal.Entry) {
	if _, err := e.journal.Append(entry); err != nil {
		observability.LogJournalError(logger, string(entry.Transition), err)
	}
}

// Execute builds an operation of kind k and executes it. The operation is
// returned whenever it could be built, even if Execute failed.
func (e *Engine) Execute(ctx context.Context, k Kind, payload map[string]any) (*Operation, error) {
	op, err := e.New(k, payload)
	if err != nil {
		return nil, err
	}
	return op, op.Execute(ctx)
}
