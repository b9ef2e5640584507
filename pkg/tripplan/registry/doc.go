// Package registry provides a concurrency-safe map with ordered keys.
//
// The scoring package keeps its strategies in one, keyed by identifier,
// and relies on the ascending key order for stable listings:
//
//	r := registry.New[string, scoring.Strategy]()
//	r.RegisterIfAbsent("climate", climate)
//	ids := r.Select(func(_ string, s scoring.Strategy) bool { return s != nil })
package registry
