// Package store provides the in-memory entity store shared by the planner.
//
// A Store is the single owner of entity state. It is constructed explicitly by
// the composition root and passed to every component that needs it; there is
// no package-level instance.
//
// All mutation happens under one write lock, so unique constraints checked in
// Put can never be satisfied by two racing writers at once. Reads share the
// read lock. Entities are cloned on the way in and on the way out, which means
// callers can never mutate stored state except through Put.
//
// Transact groups several mutations into one atomic unit that is rolled back
// if the callback returns an error or panics.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp new entities.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the generator used for entities stored without an id.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store is a concurrency-safe catalog of entities keyed by kind and id.
type Store struct {
	mu          sync.RWMutex
	collections map[entity.Kind]map[string]entity.Entity
	now         func() time.Time
	newID       func() string
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[entity.Kind]map[string]entity.Entity),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the entity, or a *errors.NotFoundError.
func (s *Store) Get(kind entity.Kind, id string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(kind, id)
}

// Put inserts or replaces e and returns its id. An entity without an id is
// assigned one. Every constraint is checked against the other entities of
// its kind before anything is written; a violation returns a
// *errors.ConflictError and leaves the store unchanged.
func (s *Store) Put(e entity.Entity, constraints ...Constraint) (string, error) {
	var id string
	err := s.Transact(func(tx *Tx) error {
		var err error
		id, err = tx.Put(e, constraints...)
		return err
	})
	return id, err
}

// Delete removes an entity and returns what was stored.
func (s *Store) Delete(kind entity.Kind, id string) (entity.Entity, error) {
	var prev entity.Entity
	err := s.Transact(func(tx *Tx) error {
		var err error
		prev, err = tx.Delete(kind, id)
		return err
	})
	return prev, err
}

// Exists reports whether any entity of kind satisfies match. match sees
// stored values and must not modify them.
func (s *Store) Exists(kind entity.Kind, match func(entity.Entity) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(kind, "", match)
}

// List returns copies of the entities of kind that satisfy match, ordered
// by creation time then id. A nil match selects everything.
func (s *Store) List(kind entity.Kind, match func(entity.Entity) bool) []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(kind, match)
}

// Count returns the number of stored entities of kind.
func (s *Store) Count(kind entity.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[kind])
}

// Snapshot exports every stored entity, grouped by kind and ordered as List
// orders them. Kinds with no entities are omitted.
func (s *Store) Snapshot() map[entity.Kind][]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[entity.Kind][]map[string]any)
	for kind, coll := range s.collections {
		if len(coll) == 0 {
			continue
		}
		for _, e := range s.list(kind, nil) {
			out[kind] = append(out[kind], e.Export())
		}
	}
	return out
}

// Transact runs fn with exclusive access to the store. If fn returns an
// error or panics, every mutation it made is undone before the lock is
// released.
func (s *Store) Transact(fn func(tx *Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.done = true
	return nil
}

func (s *Store) get(kind entity.Kind, id string) (entity.Entity, error) {
	e, ok := s.collections[kind][id]
	if !ok {
		return nil, &tperrors.NotFoundError{Kind: string(kind), ID: id}
	}
	return entity.Clone(e), nil
}

func (s *Store) exists(kind entity.Kind, skipID string, match func(entity.Entity) bool) bool {
	for id, e := range s.collections[kind] {
		if id == skipID {
			continue
		}
		if match == nil || match(e) {
			return true
		}
	}
	return false
}

func (s *Store) list(kind entity.Kind, match func(entity.Entity) bool) []entity.Entity {
	coll := s.collections[kind]
	out := make([]entity.Entity, 0, len(coll))
	for _, e := range coll {
		if match == nil || match(e) {
			out = append(out, entity.Clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].Created(), out[j].Created()
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return out[i].EntityID() < out[j].EntityID()
	})
	return out
}

// set stores e and returns the previous value, if any.
func (s *Store) set(e entity.Entity) (entity.Entity, bool) {
	kind := e.EntityKind()
	coll := s.collections[kind]
	if coll == nil {
		coll = make(map[string]entity.Entity)
		s.collections[kind] = coll
	}
	prev, had := coll[e.EntityID()]
	coll[e.EntityID()] = e
	return prev, had
}

func (s *Store) remove(kind entity.Kind, id string) {
	delete(s.collections[kind], id)
}
