// Package policy decides whether a set of granted action codes permits a
// requested action under the current feature state.
package policy

import "schoolorbit/backend/internal/feature"

// Context carries everything one decision needs: the caller's directly
// granted action codes and a feature state snapshot taken before evaluation.
type Context struct {
	Granted  []string
	Snapshot feature.Snapshot
}

// Engine evaluates actions against a registry. It is stateless and safe for
// concurrent use.
type Engine struct {
	registry *feature.Registry
}

// NewEngine returns an engine over the given registry.
func NewEngine(registry *feature.Registry) *Engine {
	return &Engine{registry: registry}
}

// Can reports whether the caller may perform action. Unknown actions are
// denied. The granted set is first closed over implies edges; the requested
// code must be in the closure, and then every condition on the action must
// hold. Conditions are conjunctive only.
func (e *Engine) Can(action string, pctx Context) bool {
	registered, ok := e.registry.GetAction(action)
	if !ok {
		return false
	}

	capabilities := e.expand(pctx.Granted)
	if _, ok := capabilities[registered.Code]; !ok {
		return false
	}

	for _, cond := range registered.Conditions {
		if !e.evaluate(cond, pctx.Snapshot, registered) {
			return false
		}
	}
	return true
}

// expand computes the fixed point of the granted set under implies edges.
// Cycles terminate because the set only grows and is bounded by the registry.
func (e *Engine) expand(granted []string) map[string]struct{} {
	resolved := make(map[string]struct{}, len(granted))
	for _, code := range granted {
		resolved[code] = struct{}{}
	}
	for changed := true; changed; {
		changed = false
		for _, action := range e.registry.ListActions() {
			if _, ok := resolved[action.Code]; !ok {
				continue
			}
			for _, implied := range action.Implies {
				if _, ok := resolved[implied]; !ok {
					resolved[implied] = struct{}{}
					changed = true
				}
			}
		}
	}
	return resolved
}

// evaluate checks one condition against the snapshot. A feature absent from
// the snapshot denies regardless of condition type.
func (e *Engine) evaluate(cond feature.Condition, snapshot feature.Snapshot, action feature.RegisteredAction) bool {
	target := cond.Feature
	if target == "" {
		target = action.FeatureID
	}
	state, ok := snapshot.Lookup(target)
	if !ok {
		return false
	}

	switch cond.Type {
	case feature.ConditionFeatureEnabled:
		return state.Enabled
	case feature.ConditionFeatureState:
		value, ok := state.States[cond.State]
		return ok && value == cond.Expected
	default:
		return false
	}
}
