package saga

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Store records saga executions. Implementations must be safe for
// concurrent use and must keep their own copies of saved executions.
type Store interface {
	// Save inserts or replaces an execution.
	Save(ctx context.Context, execution *Execution) error

	// Get retrieves an execution by ID.
	Get(ctx context.Context, executionID string) (*Execution, error)

	// List returns executions matching the filter, in the order they were
	// first saved.
	List(ctx context.Context, filter Filter) ([]*Execution, error)

	// Delete removes an execution.
	Delete(ctx context.Context, executionID string) error
}

// Filter selects executions. Zero fields match everything.
type Filter struct {
	SagaName string
	Status   Status
	// TripID keeps executions that created or touched the trip.
	TripID string

	Limit  int
	Offset int
}

func (f Filter) matches(e *Execution) bool {
	switch {
	case f.SagaName != "" && e.SagaName != f.SagaName:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.TripID != "" && e.TripID() != f.TripID:
		return false
	}
	return true
}

// ErrExecutionNotFound is returned when an execution cannot be found.
var ErrExecutionNotFound = errors.New("execution not found")

// MemoryStore keeps executions in memory. With a positive capacity the
// oldest finished executions are evicted once the log is full; running
// executions are never evicted.
type MemoryStore struct {
	capacity int

	mu    sync.RWMutex
	order []string
	byID  map[string]*Execution
}

// NewMemoryStore creates an in-memory store holding at most capacity
// executions. Zero or less keeps everything.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity, byID: make(map[string]*Execution)}
}

// Save inserts or replaces an execution.
func (s *MemoryStore) Save(_ context.Context, execution *Execution) error {
	if execution.ID == "" {
		return errors.New("execution ID is required")
	}
	saved := execution.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[saved.ID]; !ok {
		s.order = append(s.order, saved.ID)
	}
	s.byID[saved.ID] = saved
	s.evict()
	return nil
}

// evict drops finished executions, oldest first, until the log fits.
func (s *MemoryStore) evict() {
	if s.capacity <= 0 {
		return
	}
	for i := 0; len(s.order) > s.capacity && i < len(s.order); {
		id := s.order[i]
		if !s.byID[id].finished() {
			i++
			continue
		}
		delete(s.byID, id)
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Get retrieves an execution by ID.
func (s *MemoryStore) Get(_ context.Context, executionID string) (*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[executionID]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	return e.Clone(), nil
}

// List returns executions matching filter, oldest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*Execution{}
	skipped := 0
	for _, id := range s.order {
		e := s.byID[id]
		if !filter.matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, e.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// Delete removes an execution.
func (s *MemoryStore) Delete(_ context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[executionID]; !ok {
		return ErrExecutionNotFound
	}
	delete(s.byID, executionID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == executionID })
	return nil
}

// Len returns the number of recorded executions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

var _ Store = (*MemoryStore)(nil)
