package entity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeLayouts are the date layouts accepted when a payload carries
// dates as strings. The first matching layout wins.
var DecodeLayouts = []string{
	DateLayout,
	DateTimeLayout,
	"02/01/2006",
	time.RFC3339,
}

var timeType = reflect.TypeOf(time.Time{})

// Decode builds a new entity of the given kind from a payload map.
// Unknown keys are ignored.
func Decode(kind Kind, payload map[string]any) (Entity, error) {
	e, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := DecodeInto(e, payload); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeInto applies payload onto e in place. Fields absent from the
// payload keep their current values.
func DecodeInto(e Entity, payload map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           e,
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("decode %s: %w", e.EntityKind(), err)
	}
	return nil
}

func stringToTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range DecodeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}
