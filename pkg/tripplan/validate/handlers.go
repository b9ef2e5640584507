package validate

import (
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLayouts are the accepted date layouts, tried in order.
var DefaultLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

type funcHandler struct {
	name string
	fn   func(Payload, Context) Step
}

func (h funcHandler) Name() string                       { return h.name }
func (h funcHandler) Process(p Payload, ctx Context) Step { return h.fn(p, ctx) }

// Func adapts a function into a named Handler.
func Func(name string, fn func(p Payload, ctx Context) Step) Handler {
	return funcHandler{name: name, fn: fn}
}

// Sanitize trims surrounding whitespace from string values and removes
// keys whose value is nil or blank.
func Sanitize() Handler {
	return Func("sanitize", func(p Payload, _ Context) Step {
		var step Step
		for k, v := range p {
			switch s := v.(type) {
			case nil:
				step.Remove = append(step.Remove, k)
			case string:
				trimmed := strings.TrimSpace(s)
				if trimmed == "" {
					step.Remove = append(step.Remove, k)
				} else if trimmed != s {
					step = step.With(k, trimmed)
				}
			}
		}
		slices.Sort(step.Remove)
		return step
	})
}

// Required reports one error for every missing field, in the given order.
func Required(fields ...string) Handler {
	return Func("required", func(p Payload, _ Context) Step {
		return Step{Errors: missing(p, fields)}
	})
}

// RequiredByType looks up the fields required for the value held in
// typeField and checks them as Required does.
func RequiredByType(typeField string, byType map[string][]string) Handler {
	return Func("required_by_type", func(p Payload, _ Context) Step {
		if !p.Present(typeField) {
			return Fail(missingMessage(typeField))
		}
		typ := p.String(typeField)
		fields, ok := byType[typ]
		if !ok {
			return Fail(fmt.Sprintf("unsupported %s: %s", typeField, typ))
		}
		return Step{Errors: missing(p, fields)}
	})
}

func missing(p Payload, fields []string) []string {
	var errs []string
	for _, f := range fields {
		if !p.Present(f) {
			errs = append(errs, missingMessage(f))
		}
	}
	return errs
}

func missingMessage(field string) string {
	return "missing required field: " + field
}

// Dates parses the given fields with the context layouts and replaces them
// with time.Time values. The first layout that parses wins. Absent fields
// are skipped.
func Dates(fields ...string) Handler {
	return Func("dates", func(p Payload, ctx Context) Step {
		var step Step
		for _, f := range fields {
			if !p.Present(f) {
				continue
			}
			if _, ok := p.Time(f); ok {
				continue
			}
			raw := p.String(f)
			t, ok := parseDate(raw, ctx.layouts())
			if !ok {
				step.Errors = append(step.Errors, fmt.Sprintf("invalid date format for %s: %s", f, raw))
				continue
			}
			step = step.With(f, t)
		}
		return step
	})
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOrder requires end to be on or after start. Fields that are absent
// or not yet parsed are ignored.
func DateOrder(start, end string) Handler {
	return Func("date_order", func(p Payload, _ Context) Step {
		s, ok1 := p.Time(start)
		e, ok2 := p.Time(end)
		if ok1 && ok2 && e.Before(s) {
			return Fail(fmt.Sprintf("%s must not be before %s", end, start))
		}
		return Pass()
	})
}

// StrictDateOrder requires end to be strictly after start.
func StrictDateOrder(start, end string) Handler {
	return Func("strict_date_order", func(p Payload, _ Context) Step {
		s, ok1 := p.Time(start)
		e, ok2 := p.Time(end)
		if ok1 && ok2 && !e.After(s) {
			return Fail(fmt.Sprintf("%s must be after %s", end, start))
		}
		return Pass()
	})
}

// NonNegative requires the given fields to be numbers >= 0 and normalises
// them to float64.
func NonNegative(fields ...string) Handler {
	return numeric("non_negative", fields, func(f string, v float64) string {
		if v < 0 {
			return f + " must not be negative"
		}
		return ""
	})
}

// Positive requires the given fields to be numbers > 0 and normalises them
// to float64.
func Positive(fields ...string) Handler {
	return numeric("positive", fields, func(f string, v float64) string {
		if v <= 0 {
			return f + " must be greater than zero"
		}
		return ""
	})
}

// Range requires field to lie within [lo, hi].
func Range(field string, lo, hi float64) Handler {
	return numeric("range", []string{field}, func(f string, v float64) string {
		if v < lo || v > hi {
			return fmt.Sprintf("%s must be between %g and %g", f, lo, hi)
		}
		return ""
	})
}

func numeric(name string, fields []string, check func(string, float64) string) Handler {
	return Func(name, func(p Payload, _ Context) Step {
		var step Step
		for _, f := range fields {
			if !p.Present(f) {
				continue
			}
			v, ok := p.Float(f)
			if !ok {
				step.Errors = append(step.Errors, f+" must be a number")
				continue
			}
			if msg := check(f, v); msg != "" {
				step.Errors = append(step.Errors, msg)
				continue
			}
			step = step.With(f, v)
		}
		return step
	})
}

// MaxWarning adds a warning when field exceeds limit. It never fails.
func MaxWarning(field string, limit float64) Handler {
	return Func("max_warning", func(p Payload, _ Context) Step {
		if v, ok := p.Float(field); ok && v > limit {
			return Pass().Warn(fmt.Sprintf("%s is unusually high (above %g)", field, limit))
		}
		return Pass()
	})
}

// OneOf requires field, when present, to hold one of allowed.
func OneOf(field string, allowed ...string) Handler {
	return Func("one_of", func(p Payload, _ Context) Step {
		if !p.Present(field) {
			return Pass()
		}
		if v := p.String(field); !slices.Contains(allowed, v) {
			return Fail(fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", ")))
		}
		return Pass()
	})
}

// Email requires field, when present, to be a single bare address and
// normalises it to lower case.
func Email(field string) Handler {
	return Func("email", func(p Payload, _ Context) Step {
		if !p.Present(field) {
			return Pass()
		}
		raw := p.String(field)
		addr, err := mail.ParseAddress(raw)
		if err != nil || addr.Name != "" {
			return Fail("invalid email address: " + raw)
		}
		if _, domain, _ := strings.Cut(addr.Address, "@"); !strings.Contains(domain, ".") {
			return Fail("invalid email address: " + raw)
		}
		return Pass().With(field, strings.ToLower(addr.Address))
	})
}

// TitleCase rewrites the given string fields in title case, for example
// "rio de janeiro" becomes "Rio De Janeiro".
func TitleCase(fields ...string) Handler {
	return caseHandler("title_case", fields, func() cases.Caser { return cases.Title(language.Und) })
}

// UpperCase rewrites the given string fields in upper case. Used for
// flight codes, currencies and share codes.
func UpperCase(fields ...string) Handler {
	return caseHandler("upper_case", fields, func() cases.Caser { return cases.Upper(language.Und) })
}

func caseHandler(name string, fields []string, newCaser func() cases.Caser) Handler {
	return Func(name, func(p Payload, _ Context) Step {
		// Casers carry state and are not safe for concurrent use.
		c := newCaser()
		var step Step
		for _, f := range fields {
			s, ok := p[f].(string)
			if !ok || s == "" {
				continue
			}
			if out := c.String(s); out != s {
				step = step.With(f, out)
			}
		}
		return step
	})
}

// Bool parses the given fields as booleans ("true", "1", "yes", ...) and
// normalises them to bool. Absent fields are skipped.
func Bool(fields ...string) Handler {
	return Func("bool", func(p Payload, _ Context) Step {
		var step Step
		for _, f := range fields {
			if !p.Present(f) {
				continue
			}
			if _, ok := p[f].(bool); ok {
				continue
			}
			b, ok := parseBool(p.String(f))
			if !ok {
				step.Errors = append(step.Errors, f+" must be true or false")
				continue
			}
			step = step.With(f, b)
		}
		return step
	})
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	return b, err == nil
}

// PastWarning warns when a parsed date field lies before the context
// reference time. It never fails and does nothing when Context.Now is zero.
func PastWarning(field string) Handler {
	return Func("past_warning", func(p Payload, ctx Context) Step {
		t, ok := p.Time(field)
		if !ok || ctx.Now.IsZero() {
			return Pass()
		}
		today := ctx.Now.UTC().Truncate(24 * time.Hour)
		if t.Before(today) {
			return Pass().Warn(field + " is in the past")
		}
		return Pass()
	})
}
