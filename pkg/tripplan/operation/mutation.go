package operation

import (
	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/store"
)

// change is one entity as it was before an operation first touched it and
// as the operation last left it. A nil prev means the entity did not exist;
// a nil next means the operation deleted it.
type change struct {
	kind entity.Kind
	id   string
	prev entity.Entity
	next entity.Entity
}

// mutation wraps a store transaction and records the before and after
// state of every entity it writes, which is what undo needs.
type mutation struct {
	tx      *store.Tx
	changes []change
	index   map[entity.Ref]int
}

func newMutation(tx *store.Tx) *mutation {
	return &mutation{tx: tx, index: make(map[entity.Ref]int)}
}

func (m *mutation) record(kind entity.Kind, id string, prev, next entity.Entity) {
	ref := entity.Ref{Kind: kind, ID: id}
	if i, ok := m.index[ref]; ok {
		m.changes[i].next = next
		return
	}
	m.index[ref] = len(m.changes)
	m.changes = append(m.changes, change{kind: kind, id: id, prev: prev, next: next})
}

func (m *mutation) get(kind entity.Kind, id string) (entity.Entity, error) {
	return m.tx.Get(kind, id)
}

func (m *mutation) put(e entity.Entity, constraints ...store.Constraint) (string, error) {
	var prev entity.Entity
	if id := e.EntityID(); id != "" {
		if p, err := m.tx.Get(e.EntityKind(), id); err == nil {
			prev = p
		}
	}
	id, err := m.tx.Put(e, constraints...)
	if err != nil {
		return "", err
	}
	next, err := m.tx.Get(e.EntityKind(), id)
	if err != nil {
		return "", err
	}
	m.record(e.EntityKind(), id, prev, next)
	return id, nil
}

func (m *mutation) delete(kind entity.Kind, id string) (entity.Entity, error) {
	prev, err := m.tx.Delete(kind, id)
	if err != nil {
		return nil, err
	}
	m.record(kind, id, prev, nil)
	return prev, nil
}

func (m *mutation) list(kind entity.Kind, match func(entity.Entity) bool) []entity.Entity {
	return m.tx.List(kind, match)
}

// constraintsFor returns the unique constraints an entity must satisfy
// whenever it is written.
func constraintsFor(e entity.Entity) []store.Constraint {
	switch v := e.(type) {
	case *entity.Trip:
		return []store.Constraint{store.UniqueShareCode(v.ShareCode)}
	case *entity.User:
		return []store.Constraint{store.UniqueEmail(v.Email)}
	}
	return nil
}

// revert undoes the recorded changes, newest first. Each entity gets back
// only what this operation changed: later changes by other operations are
// kept, and a field they overwrote fails the whole revert with a
// *errors.ConflictError.
func revert(tx *store.Tx, changes []change) error {
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		cur, err := tx.Get(c.kind, c.id)
		if err != nil {
			if !tperrors.IsNotFound(err) {
				return err
			}
			cur = nil
		}
		restored, err := reverse(c, cur)
		if err != nil {
			return err
		}
		switch {
		case restored != nil:
			if _, err := tx.Put(restored, constraintsFor(restored)...); err != nil {
				return err
			}
		case cur != nil:
			if _, err := tx.Delete(c.kind, c.id); err != nil {
				return err
			}
		}
	}
	return nil
}
