package operation

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
)

// Sentinel errors returned by Invoker.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrInProgress    = errors.New("operation still in progress")
)

// Invoker executes operations and keeps a bounded, linear history of the
// executed ones. Undo walks the history backwards; Redo re-applies undone
// operations as fresh operations built from the same payload. Executing a
// new operation discards everything that could still be redone.
//
// The invoker lock is never held while an operation runs, so event
// subscribers may call back into the invoker. A slot is reserved in the
// history before the operation runs, keeping the history in start order.
type Invoker struct {
	engine  *Engine
	maxSize int

	mu       sync.Mutex
	done     []*Operation // executed or running, oldest first
	undone   []*Operation // redo stack, most recently undone last
	inflight map[*Operation]struct{}
	stats    InvokerStats
}

// InvokerStats counts invoker activity. ByKind counts successful
// executions, redos included, per operation kind.
type InvokerStats struct {
	Executed int
	Failed   int
	Undone   int
	Redone   int
	ByKind   map[Kind]int
}

// NewInvoker creates an invoker over engine. maxSize bounds the history;
// zero or less means the engine's configured history size.
func NewInvoker(engine *Engine, maxSize int) *Invoker {
	if maxSize <= 0 {
		maxSize = engine.settings.History.MaxSize
	}
	return &Invoker{engine: engine, maxSize: maxSize, inflight: make(map[*Operation]struct{})}
}

// Engine returns the underlying engine.
func (inv *Invoker) Engine() *Engine { return inv.engine }

// Execute builds and executes an operation. Failed operations are returned
// with their error but never enter the history.
func (inv *Invoker) Execute(ctx context.Context, k Kind, payload map[string]any) (*Operation, error) {
	op, err := inv.engine.New(k, payload)
	if err != nil {
		return nil, err
	}
	return op, inv.Run(ctx, op)
}

// Run executes a pending operation built by the same engine and records it.
func (inv *Invoker) Run(ctx context.Context, op *Operation) error {
	inv.mu.Lock()
	inv.reserve(op)
	inv.mu.Unlock()

	err := op.Execute(ctx)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	delete(inv.inflight, op)
	if err != nil {
		inv.drop(op)
		inv.stats.Failed++
		return err
	}
	inv.stats.Executed++
	inv.countKind(op.kind)
	inv.undone = nil
	inv.trim()
	return nil
}

func (inv *Invoker) reserve(op *Operation) {
	inv.done = append(inv.done, op)
	inv.inflight[op] = struct{}{}
}

func (inv *Invoker) drop(op *Operation) {
	inv.done = slices.DeleteFunc(inv.done, func(o *Operation) bool { return o == op })
}

func (inv *Invoker) trim() {
	if inv.maxSize > 0 && len(inv.done) > inv.maxSize {
		inv.done = slices.Clone(inv.done[len(inv.done)-inv.maxSize:])
	}
}

func (inv *Invoker) countKind(k Kind) {
	if inv.stats.ByKind == nil {
		inv.stats.ByKind = make(map[Kind]int)
	}
	inv.stats.ByKind[k]++
}

// top returns the most recent history entry and whether it is still
// running. Callers hold inv.mu.
func (inv *Invoker) top() (*Operation, bool) {
	if len(inv.done) == 0 {
		return nil, false
	}
	op := inv.done[len(inv.done)-1]
	_, busy := inv.inflight[op]
	return op, busy
}

// Undo reverses the most recent executed operation. It returns
// ErrNothingToUndo when the history holds nothing to undo and
// ErrInProgress when that operation is still running. When the operation
// cannot be undone its error is returned and the history is left
// unchanged.
func (inv *Invoker) Undo(ctx context.Context) (*Operation, error) {
	inv.mu.Lock()
	op, busy := inv.top()
	switch {
	case op == nil:
		inv.mu.Unlock()
		return nil, ErrNothingToUndo
	case busy:
		inv.mu.Unlock()
		return op, ErrInProgress
	}
	inv.inflight[op] = struct{}{}
	inv.mu.Unlock()

	err := op.Undo(ctx)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	delete(inv.inflight, op)
	if err != nil {
		return op, err
	}
	inv.drop(op)
	inv.undone = append(inv.undone, op)
	inv.stats.Undone++
	return op, nil
}

// Redo re-executes the most recently undone operation as a new operation
// with the same kind and payload, which takes its place in the history.
// If the new operation fails, the undone one stays redoable.
func (inv *Invoker) Redo(ctx context.Context) (*Operation, error) {
	inv.mu.Lock()
	if len(inv.undone) == 0 {
		inv.mu.Unlock()
		return nil, ErrNothingToRedo
	}
	prev := inv.undone[len(inv.undone)-1]
	op, err := inv.engine.New(prev.kind, prev.payload)
	if err != nil {
		inv.mu.Unlock()
		return nil, err
	}
	inv.undone = inv.undone[:len(inv.undone)-1]
	inv.reserve(op)
	inv.mu.Unlock()

	err = op.Execute(ctx)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	delete(inv.inflight, op)
	if err != nil {
		inv.drop(op)
		inv.undone = append(inv.undone, prev)
		inv.stats.Failed++
		return op, err
	}
	inv.stats.Redone++
	inv.countKind(op.kind)
	inv.trim()
	return op, nil
}

// CanUndo reports whether Undo has an operation to reverse.
func (inv *Invoker) CanUndo() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	op, busy := inv.top()
	return op != nil && !busy
}

// CanRedo reports whether Redo has an operation to re-apply.
func (inv *Invoker) CanRedo() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.undone) > 0
}

// History returns the executed operations, oldest first. Operations still
// running are left out.
func (inv *Invoker) History() []*Operation {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]*Operation, 0, len(inv.done))
	for _, op := range inv.done {
		if _, busy := inv.inflight[op]; !busy {
			out = append(out, op)
		}
	}
	return out
}

// Clear forgets the history without undoing anything.
func (inv *Invoker) Clear() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.done = nil
	inv.undone = nil
}

// Stats returns activity counters.
func (inv *Invoker) Stats() InvokerStats {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	stats := inv.stats
	stats.ByKind = maps.Clone(inv.stats.ByKind)
	return stats
}
