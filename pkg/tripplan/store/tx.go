package store

import (
	"errors"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
)

// ErrTxClosed is returned when a Tx is used after its Transact call returned.
var ErrTxClosed = errors.New("transaction already closed")

// Tx is the view of the store available inside Transact. It must not be
// retained after the callback returns.
type Tx struct {
	s    *Store
	undo []func()
	done bool
}

// Get returns a copy of the entity, or a *errors.NotFoundError.
func (tx *Tx) Get(kind entity.Kind, id string) (entity.Entity, error) {
	if tx.done {
		return nil, ErrTxClosed
	}
	return tx.s.get(kind, id)
}

// Put inserts or replaces e within the transaction. See Store.Put.
func (tx *Tx) Put(e entity.Entity, constraints ...Constraint) (string, error) {
	if tx.done {
		return "", ErrTxClosed
	}
	if e == nil {
		return "", &tperrors.ValidationError{Messages: []string{"entity is nil"}}
	}

	stored := entity.Assign(e, tx.s.newID(), tx.s.now())
	for _, c := range constraints {
		if c.violatedBy(tx.s, stored) {
			return "", &tperrors.ConflictError{Kind: string(c.Kind), Field: c.Field, Value: c.Value}
		}
	}

	prev, had := tx.s.set(stored)
	kind, id := stored.EntityKind(), stored.EntityID()
	tx.undo = append(tx.undo, func() {
		if had {
			tx.s.set(prev)
			return
		}
		tx.s.remove(kind, id)
	})
	return id, nil
}

// Delete removes an entity within the transaction and returns a copy of it.
func (tx *Tx) Delete(kind entity.Kind, id string) (entity.Entity, error) {
	if tx.done {
		return nil, ErrTxClosed
	}
	prev, ok := tx.s.collections[kind][id]
	if !ok {
		return nil, &tperrors.NotFoundError{Kind: string(kind), ID: id}
	}
	tx.s.remove(kind, id)
	tx.undo = append(tx.undo, func() { tx.s.set(prev) })
	return entity.Clone(prev), nil
}

// Exists reports whether any entity of kind satisfies match.
func (tx *Tx) Exists(kind entity.Kind, match func(entity.Entity) bool) bool {
	if tx.done {
		return false
	}
	return tx.s.exists(kind, "", match)
}

// List returns matching entities as Store.List does.
func (tx *Tx) List(kind entity.Kind, match func(entity.Entity) bool) []entity.Entity {
	if tx.done {
		return nil
	}
	return tx.s.list(kind, match)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.done = true
}
