package scoring

import (
	"errors"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
	"github.com/randalmurphal/tripplan/pkg/tripplan/registry"
)

// Purpose tells recommendation strategies from estimation strategies.
type Purpose string

// Strategy purposes.
const (
	Recommend Purpose = "recommend"
	Estimate  Purpose = "estimate"
)

type registered struct {
	strategy Strategy
	purpose  Purpose
}

// Registry maps strategy identifiers to strategies. It is safe for
// concurrent use.
type Registry struct {
	entries *registry.Registry[string, registered]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: registry.New[string, registered]()}
}

// DefaultRegistry registers the built-in strategies configured from s:
// climate, budget, interest and hybrid for recommendations and daily,
// category and adaptive for estimates. "flexible" is an alias of adaptive.
func DefaultRegistry(s config.Settings) *Registry {
	r := NewRegistry()
	for _, st := range []Strategy{
		NewClimate(s.Scoring),
		NewBudget(s.Scoring),
		NewInterest(s.Scoring),
		NewHybrid(s.Scoring),
	} {
		r.entries.Register(st.Name(), registered{st, Recommend})
	}
	adaptive := NewAdaptive(s)
	for _, st := range []Strategy{NewDailyRate(s), NewCategoryBreakdown(s), adaptive} {
		r.entries.Register(st.Name(), registered{st, Estimate})
	}
	r.entries.Register("flexible", registered{adaptive, Estimate})
	return r
}

// Register adds s under id. It fails if id is already taken.
func (r *Registry) Register(id string, p Purpose, s Strategy) error {
	if id == "" || s == nil {
		return errors.New("strategy id and implementation are required")
	}
	if !r.entries.RegisterIfAbsent(id, registered{s, p}) {
		return &tperrors.ConflictError{Kind: "strategy", Field: "id", Value: id}
	}
	return nil
}

// Get returns the strategy registered under id, or a
// *errors.NotFoundError.
func (r *Registry) Get(id string) (Strategy, error) {
	e, ok := r.entries.Get(id)
	if !ok {
		return nil, &tperrors.NotFoundError{Kind: "strategy", ID: id}
	}
	return e.strategy, nil
}

// Lookup returns the strategy registered under id when it serves purpose
// p. A strategy of the other purpose is reported as not found.
func (r *Registry) Lookup(id string, p Purpose) (Strategy, error) {
	e, ok := r.entries.Get(id)
	if !ok || e.purpose != p {
		return nil, &tperrors.NotFoundError{Kind: string(p) + " strategy", ID: id}
	}
	return e.strategy, nil
}

// IDs returns the registered identifiers serving purpose p, sorted. An
// empty purpose returns every identifier.
func (r *Registry) IDs(p Purpose) []string {
	return r.entries.Select(func(_ string, e registered) bool {
		return p == "" || e.purpose == p
	})
}

// All returns the strategies serving purpose p in identifier order. A
// strategy registered under several identifiers appears once.
func (r *Registry) All(p Purpose) []Strategy {
	var out []Strategy
	seen := map[string]bool{}
	for _, id := range r.IDs(p) {
		s, _ := r.Get(id)
		if seen[s.Name()] {
			continue
		}
		seen[s.Name()] = true
		out = append(out, s)
	}
	return out
}
