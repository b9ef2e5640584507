// Package saga runs compound planner actions as a sequence of operations.
//
// A Definition lists steps; each step builds one operation payload from
// the shared State, which holds the results of the steps before it. When a
// required step fails, every operation the execution already applied is
// undone in reverse order, so a compound action is either applied as a
// whole or not at all.
//
//	def := &saga.Definition{
//		Name: "trip-with-budget",
//		Steps: []saga.Step{
//			{Name: "trip", Kind: operation.TripCreate, Build: saga.Input},
//			{Name: "expense", Kind: operation.ItemAdd, Build: func(s saga.State) (map[string]any, error) {
//				return map[string]any{"item_type": "expense", "trip_id": s.ID("trip"), "description": "Setup", "amount": 1}, nil
//			}},
//		},
//	}
//	orch := saga.NewOrchestrator(engine)
//	orch.MustRegister(def)
//	exec, err := orch.Run(ctx, "trip-with-budget", saga.State{"destination": "Lisbon"})
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
)

// Status represents the state of a saga execution.
type Status string

// Saga status constants.
const (
	StatusPending      Status = "pending"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusSkipped      Status = "skipped"
	StatusCompensating Status = "compensating"
	StatusCompensated  Status = "compensated"
	StatusFailed       Status = "failed"
)

// State is the data shared by the steps of one execution. It starts as
// the caller's input; the exported result of every executed step is
// stored under the step name.
type State map[string]any

// ID returns the id of the entity produced by step, or "".
func (s State) ID(step string) string {
	res, _ := s[step].(map[string]any)
	id, _ := res["id"].(string)
	return id
}

// String returns the string stored at key, or "".
func (s State) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Input is a Build function that passes the caller's input through. Map
// values are left out because they hold the results of earlier steps.
func Input(s State) (map[string]any, error) {
	out := make(map[string]any, len(s))
	for k, v := range s {
		if _, isResult := v.(map[string]any); !isResult {
			out[k] = v
		}
	}
	return out, nil
}

// Step defines a single step in a saga.
type Step struct {
	// Name identifies this step and keys its result in the State.
	Name string

	// Kind is the operation the step executes.
	Kind operation.Kind

	// Build returns the operation payload.
	Build func(State) (map[string]any, error)

	// When, if set, decides whether the step runs at all.
	When func(State) bool

	// Optional marks this step as non-critical.
	// If an optional step fails, the saga continues without compensating.
	Optional bool
}

// Definition defines a compound action.
type Definition struct {
	// Name identifies this saga type.
	Name string

	// Steps are executed in order.
	Steps []Step

	// OnComplete is called when the saga completes successfully.
	OnComplete func(ctx context.Context, execution *Execution)

	// OnCompensate is called when compensation completes.
	OnCompensate func(ctx context.Context, execution *Execution)
}

// Validate checks the saga definition for errors.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("saga name is required")
	}
	if len(d.Steps) == 0 {
		return errors.New("saga must have at least one step")
	}
	seen := map[string]bool{}
	for i, step := range d.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("step %d: duplicate name %q", i, step.Name)
		}
		seen[step.Name] = true
		if step.Build == nil {
			return fmt.Errorf("step %d (%s): build is required", i, step.Name)
		}
		if _, err := operation.ParseKind(string(step.Kind)); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}
	return nil
}

// StepError reports the step that stopped an execution.
type StepError struct {
	Saga string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %s: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepExecution tracks a single step's execution.
type StepExecution struct {
	StepName    string        `json:"step_name"`
	Kind        string        `json:"kind"`
	Status      Status        `json:"status"`
	OperationID string        `json:"operation_id,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	FinishedAt  time.Time     `json:"finished_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// Execution tracks the complete saga execution.
type Execution struct {
	ID              string          `json:"id"`
	SagaName        string          `json:"saga_name"`
	Status          Status          `json:"status"`
	State           State           `json:"state,omitempty"`
	Error           string          `json:"error,omitempty"`
	Steps           []StepExecution `json:"steps"`
	CurrentStep     int             `json:"current_step"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at,omitempty"`
	CompensatedAt   *time.Time      `json:"compensated_at,omitempty"`
	CompensateError string          `json:"compensate_error,omitempty"`

	// operations executed so far, in step order
	ops []*operation.Operation
	// def is the definition the execution ran, registered or not
	def *Definition

	mu sync.Mutex
}

// Clone creates a copy of the execution without the mutex.
func (e *Execution) Clone() *Execution {
	e.mu.Lock()
	defer e.mu.Unlock()

	return &Execution{
		ID:              e.ID,
		SagaName:        e.SagaName,
		Status:          e.Status,
		State:           maps.Clone(e.State),
		Error:           e.Error,
		Steps:           slices.Clone(e.Steps),
		CurrentStep:     e.CurrentStep,
		StartedAt:       e.StartedAt,
		FinishedAt:      e.FinishedAt,
		CompensatedAt:   e.CompensatedAt,
		CompensateError: e.CompensateError,
		ops:             slices.Clone(e.ops),
		def:             e.def,
	}
}

// TripID returns the trip the execution created or worked on: the input
// trip_id when present, otherwise the first trip or trip item a step
// produced.
func (e *Execution) TripID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id := e.State.String("trip_id"); id != "" {
		return id
	}
	for _, step := range e.Steps {
		res, _ := e.State[step.StepName].(map[string]any)
		if res["kind"] == "trip" {
			id, _ := res["id"].(string)
			return id
		}
		if id, _ := res["trip_id"].(string); id != "" {
			return id
		}
	}
	return ""
}

func (e *Execution) finished() bool {
	switch e.Status {
	case StatusCompleted, StatusCompensated, StatusFailed:
		return true
	}
	return false
}

// Operations returns the operations the execution applied, in step order.
func (e *Execution) Operations() []*operation.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.ops)
}

// Orchestrator runs saga definitions against one operation engine.
type Orchestrator struct {
	engine *operation.Engine
	store  Store
	logger *slog.Logger
	spans  observability.SpanManager

	mu    sync.RWMutex
	sagas map[string]*Definition
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore sets where executions are recorded. Defaults to an unbounded
// MemoryStore.
func WithStore(s Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithLogger sets the logger for the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithSpanManager sets the tracer.
func WithSpanManager(s observability.SpanManager) Option {
	return func(o *Orchestrator) { o.spans = s }
}

// NewOrchestrator creates a new saga orchestrator.
func NewOrchestrator(engine *operation.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: engine,
		sagas:  make(map[string]*Definition),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = NewMemoryStore(0)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.spans == nil {
		o.spans = observability.NoopSpanManager{}
	}
	return o
}

// Store returns the execution store.
func (o *Orchestrator) Store() Store { return o.store }

// Register adds a saga definition.
func (o *Orchestrator) Register(saga *Definition) error {
	if err := saga.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.sagas[saga.Name]; exists {
		return fmt.Errorf("saga %q already registered", saga.Name)
	}

	o.sagas[saga.Name] = saga
	return nil
}

// MustRegister registers a saga, panicking on error.
func (o *Orchestrator) MustRegister(saga *Definition) {
	if err := o.Register(saga); err != nil {
		panic(err)
	}
}

// Registered returns the registered saga names, sorted.
func (o *Orchestrator) Registered() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Sorted(maps.Keys(o.sagas))
}

// Run executes the named saga synchronously. On success the completed
// execution is returned with a nil error. When a required step fails the
// applied operations are undone and the returned error is a *StepError,
// joined with any compensation failure. The execution is returned whenever
// it was started.
func (o *Orchestrator) Run(ctx context.Context, sagaName string, input State) (*Execution, error) {
	o.mu.RLock()
	saga, exists := o.sagas[sagaName]
	o.mu.RUnlock()

	if !exists {
		return nil, &tperrors.NotFoundError{Kind: "saga", ID: sagaName}
	}
	return o.start(ctx, saga, input)
}

// RunDefinition executes a definition that was built for a single call
// and never registered. Its executions are recorded and can be
// compensated like any other.
func (o *Orchestrator) RunDefinition(ctx context.Context, saga *Definition, input State) (*Execution, error) {
	if err := saga.Validate(); err != nil {
		return nil, err
	}
	return o.start(ctx, saga, input)
}

func (o *Orchestrator) start(ctx context.Context, saga *Definition, input State) (*Execution, error) {
	execution := &Execution{
		ID:        fmt.Sprintf("saga-%s", uuid.New().String()[:8]),
		SagaName:  saga.Name,
		Status:    StatusRunning,
		State:     maps.Clone(input),
		Steps:     make([]StepExecution, len(saga.Steps)),
		StartedAt: time.Now(),
		def:       saga,
	}
	if execution.State == nil {
		execution.State = State{}
	}
	for i, step := range saga.Steps {
		execution.Steps[i] = StepExecution{StepName: step.Name, Kind: string(step.Kind), Status: StatusPending}
	}
	if err := o.store.Save(ctx, execution); err != nil {
		return nil, err
	}

	ctx, span := o.spans.StartSagaSpan(ctx, saga.Name, execution.ID)
	err := o.execute(ctx, saga, execution)
	o.spans.EndSpanWithError(span, err)
	o.persist(ctx, execution)
	return execution.Clone(), err
}

func (o *Orchestrator) execute(ctx context.Context, saga *Definition, execution *Execution) error {
	for i := range saga.Steps {
		step := &saga.Steps[i]

		if err := ctx.Err(); err != nil {
			stepErr := &StepError{Saga: saga.Name, Step: step.Name, Err: err}
			return errors.Join(stepErr, o.compensate(ctx, saga, execution, stepErr))
		}

		execution.mu.Lock()
		execution.CurrentStep = i
		stepExec := &execution.Steps[i]
		state := maps.Clone(execution.State)
		execution.mu.Unlock()

		if step.When != nil && !step.When(state) {
			execution.mu.Lock()
			stepExec.Status = StatusSkipped
			execution.mu.Unlock()
			continue
		}

		execution.mu.Lock()
		stepExec.Status = StatusRunning
		stepExec.StartedAt = time.Now()
		execution.mu.Unlock()

		op, err := o.runStep(ctx, step, state)

		execution.mu.Lock()
		stepExec.FinishedAt = time.Now()
		stepExec.Duration = stepExec.FinishedAt.Sub(stepExec.StartedAt)
		if op != nil {
			stepExec.OperationID = op.ID()
		}
		if err != nil {
			stepExec.Status = StatusFailed
			stepExec.Error = err.Error()
			if step.Optional {
				stepExec.Status = StatusSkipped
			}
		} else {
			stepExec.Status = StatusCompleted
			execution.State[step.Name] = op.Result()
			execution.ops = append(execution.ops, op)
		}
		execution.mu.Unlock()

		if err != nil && step.Optional {
			o.logger.Debug("optional saga step failed, continuing",
				"saga_id", execution.ID,
				"step", step.Name,
				"error", err,
			)
			continue
		}
		if err != nil {
			o.logger.Error("saga step failed",
				"saga_id", execution.ID,
				"saga_name", saga.Name,
				"step", step.Name,
				"error", err,
			)
			stepErr := &StepError{Saga: saga.Name, Step: step.Name, Err: err}
			return errors.Join(stepErr, o.compensate(ctx, saga, execution, stepErr))
		}

		o.logger.Debug("saga step completed",
			"saga_id", execution.ID,
			"step", step.Name,
			"operation_id", op.ID(),
		)
	}

	execution.mu.Lock()
	execution.Status = StatusCompleted
	execution.FinishedAt = time.Now()
	execution.mu.Unlock()

	o.logger.Info("saga completed successfully",
		"saga_id", execution.ID,
		"saga_name", saga.Name,
	)

	if saga.OnComplete != nil {
		saga.OnComplete(ctx, execution.Clone())
	}
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, step *Step, state State) (*operation.Operation, error) {
	payload, err := step.Build(state)
	if err != nil {
		return nil, err
	}
	return o.engine.Execute(ctx, step.Kind, payload)
}

// compensate undoes every applied operation, newest first. It returns the
// joined undo failures, if any.
func (o *Orchestrator) compensate(ctx context.Context, saga *Definition, execution *Execution, reason error) error {
	execution.mu.Lock()
	execution.Status = StatusCompensating
	execution.Error = reason.Error()
	ops := slices.Clone(execution.ops)
	execution.mu.Unlock()

	o.logger.Info("starting saga compensation",
		"saga_id", execution.ID,
		"saga_name", saga.Name,
		"operations", len(ops),
		"reason", reason,
	)

	var errs []error
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.Status() != operation.Executed {
			continue
		}
		err := op.Undo(ctx)
		observability.LogCompensation(o.logger, saga.Name, string(op.Kind()), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("undo %s (%s): %w", op.Kind(), op.ID(), err))
		}
	}

	now := time.Now()
	joined := errors.Join(errs...)
	execution.mu.Lock()
	if joined != nil {
		execution.Status = StatusFailed
		execution.CompensateError = joined.Error()
	} else {
		execution.Status = StatusCompensated
	}
	execution.CompensatedAt = &now
	execution.FinishedAt = now
	execution.mu.Unlock()

	o.logger.Info("saga compensation completed",
		"saga_id", execution.ID,
		"saga_name", saga.Name,
		"status", execution.Status,
	)

	if saga.OnCompensate != nil {
		saga.OnCompensate(ctx, execution.Clone())
	}
	return joined
}

// Compensate undoes a completed execution, for example when the caller
// wants to revert a whole compound action.
func (o *Orchestrator) Compensate(ctx context.Context, executionID string, reason string) (*Execution, error) {
	execution, err := o.store.Get(ctx, executionID)
	if err != nil {
		return nil, err
	}

	execution.mu.Lock()
	status := execution.Status
	execution.mu.Unlock()
	if status != StatusCompleted {
		return nil, &tperrors.InvalidStateError{Op: "compensate", Status: string(status), Want: string(StatusCompleted)}
	}

	saga := execution.def
	if saga == nil {
		o.mu.RLock()
		saga = o.sagas[execution.SagaName]
		o.mu.RUnlock()
	}
	if saga == nil {
		// Undo only needs the recorded operations.
		saga = &Definition{Name: execution.SagaName}
	}

	err = o.compensate(ctx, saga, execution, errors.New(reason))
	o.persist(ctx, execution)
	return execution.Clone(), err
}

// Get returns an execution by ID.
func (o *Orchestrator) Get(ctx context.Context, executionID string) (*Execution, error) {
	return o.store.Get(ctx, executionID)
}

// List returns executions matching filter.
func (o *Orchestrator) List(ctx context.Context, filter Filter) ([]*Execution, error) {
	return o.store.List(ctx, filter)
}

func (o *Orchestrator) persist(ctx context.Context, execution *Execution) {
	if err := o.store.Save(ctx, execution); err != nil {
		o.logger.Warn("failed to record saga execution",
			"saga_id", execution.ID,
			"error", err,
		)
	}
}
