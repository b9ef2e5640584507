package store

import (
	"strings"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
)

// Constraint is a uniqueness rule checked by Put. The candidate entity
// violates it when any other entity of Kind satisfies Match. A constraint
// with an empty Value is never violated.
type Constraint struct {
	Kind  entity.Kind
	Field string
	Value string
	Match func(entity.Entity) bool
}

func (c Constraint) violatedBy(s *Store, candidate entity.Entity) bool {
	if c.Value == "" || c.Match == nil {
		return false
	}
	skip := ""
	if candidate.EntityKind() == c.Kind {
		skip = candidate.EntityID()
	}
	return s.exists(c.Kind, skip, c.Match)
}

// UniqueShareCode requires that no other trip holds code.
func UniqueShareCode(code string) Constraint {
	return Constraint{
		Kind:  entity.KindTrip,
		Field: "share_code",
		Value: code,
		Match: func(e entity.Entity) bool {
			t, ok := e.(*entity.Trip)
			return ok && t.ShareCode == code
		},
	}
}

// UniqueEmail requires that no other user holds email, compared
// case-insensitively.
func UniqueEmail(email string) Constraint {
	return Constraint{
		Kind:  entity.KindUser,
		Field: "email",
		Value: email,
		Match: func(e entity.Entity) bool {
			u, ok := e.(*entity.User)
			return ok && strings.EqualFold(u.Email, email)
		},
	}
}

// ShareCodeTaken reports whether any trip holds code.
func (s *Store) ShareCodeTaken(code string) bool {
	return s.Exists(entity.KindTrip, UniqueShareCode(code).Match)
}

// EmailTaken reports whether any user holds email.
func (s *Store) EmailTaken(email string) bool {
	return s.Exists(entity.KindUser, UniqueEmail(email).Match)
}
