package operation

import (
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	stringsType = reflect.TypeOf([]string(nil))
)

// reverse computes what undoing c leaves in the store for one entity,
// given its current state cur (nil when absent). A nil result with a nil
// error means the entity must not exist afterwards. Changes made by later
// operations are kept; a field this operation wrote that has since been
// overwritten is a conflict.
func reverse(c change, cur entity.Entity) (entity.Entity, error) {
	switch {
	case cur == nil && c.next == nil:
		if c.prev == nil {
			return nil, nil
		}
		return entity.Clone(c.prev), nil
	case cur == nil:
		if c.prev == nil {
			return nil, nil
		}
		return nil, conflict(c, "id", c.id)
	case c.next == nil:
		return nil, conflict(c, "id", c.id)
	case c.prev == nil:
		if field, ok := firstDiff(reflect.ValueOf(c.next).Elem(), reflect.ValueOf(cur).Elem()); ok {
			return nil, conflict(c, field, c.id)
		}
		return nil, nil
	}

	out := entity.Clone(cur)
	if field, ok := merge3(
		reflect.ValueOf(c.prev).Elem(),
		reflect.ValueOf(c.next).Elem(),
		reflect.ValueOf(out).Elem(),
	); !ok {
		return nil, conflict(c, field, c.id)
	}
	return out, nil
}

func conflict(c change, field, value string) error {
	return &tperrors.ConflictError{Kind: string(c.kind), Field: field, Value: value}
}

// merge3 rewrites every field of cur that differs between prev and next
// back to its prev value. String lists are merged as sets so entries added
// or removed by other operations survive. It returns the offending field
// name when cur no longer holds what next wrote.
func merge3(prev, next, cur reflect.Value) (string, bool) {
	t := cur.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		p, n, c := prev.Field(i), next.Field(i), cur.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if name, ok := merge3(p, n, c); !ok {
				return name, false
			}
			continue
		}
		if same(p, n) {
			continue
		}
		switch {
		case same(c, n):
			c.Set(p)
		case f.Type == stringsType:
			c.Set(reflect.ValueOf(mergeStrings(
				p.Interface().([]string),
				n.Interface().([]string),
				c.Interface().([]string),
			)))
		default:
			return fieldName(f), false
		}
	}
	return "", true
}

// mergeStrings removes from cur what next added to prev and puts back
// what next removed, near its old position.
func mergeStrings(prev, next, cur []string) []string {
	out := slices.Clone(cur)
	for _, s := range next {
		if !slices.Contains(prev, s) {
			out = slices.DeleteFunc(out, func(v string) bool { return v == s })
		}
	}
	for i, s := range prev {
		if !slices.Contains(next, s) && !slices.Contains(out, s) {
			out = slices.Insert(out, min(i, len(out)), s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstDiff reports the first exported field that differs between a and b.
func firstDiff(a, b reflect.Value) (string, bool) {
	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if name, ok := firstDiff(a.Field(i), b.Field(i)); ok {
				return name, true
			}
			continue
		}
		if !same(a.Field(i), b.Field(i)) {
			return fieldName(f), true
		}
	}
	return "", false
}

// same compares field values, treating nil and empty slices or maps as
// equal and times by instant.
func same(a, b reflect.Value) bool {
	switch {
	case a.Type() == timeType:
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	case a.Kind() == reflect.Slice || a.Kind() == reflect.Map:
		if a.Len() == 0 && b.Len() == 0 {
			return true
		}
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

func fieldName(f reflect.StructField) string {
	if tag, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ","); tag != "" {
		return tag
	}
	return strings.ToLower(f.Name)
}
