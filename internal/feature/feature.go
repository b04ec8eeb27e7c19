// Package feature holds the immutable capability catalog (registry) and the
// runtime overlay of persisted toggle state on top of it.
package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateFeature is returned when two definitions share a feature id.
	// Duplicates indicate a packaging bug and are fatal at startup.
	ErrDuplicateFeature = errors.New("feature already registered")
	// ErrDuplicateAction is returned when an action code collides with one
	// registered by another feature.
	ErrDuplicateAction = errors.New("action already registered")
)

// ConditionType selects how a Condition is evaluated against a Snapshot.
type ConditionType string

const (
	// ConditionFeatureEnabled requires the target feature's enabled flag.
	ConditionFeatureEnabled ConditionType = "feature-enabled"
	// ConditionFeatureState requires a named sub-state to equal Expected.
	ConditionFeatureState ConditionType = "feature-state"
)

// Condition gates an action on dynamic feature state. Feature is optional and
// defaults to the action's owning feature. Conditions on an action are ANDed;
// the model has no OR or negation primitive — a deliberate limitation kept
// from the original design, not an oversight.
type Condition struct {
	Type     ConditionType
	Feature  string
	State    string
	Expected bool
}

// Action is a capability gate: a unique code, the codes it transitively
// implies when granted, and the conditions that must hold at decision time.
type Action struct {
	Code        string
	Label       string
	Description string
	Implies     []string
	Conditions  []Condition
}

// StateDef declares a named boolean sub-state with its default value.
type StateDef struct {
	Code        string
	Label       string
	Description string
	Default     bool
}

// MenuItem declares a navigation entry contributed by a feature.
type MenuItem struct {
	ID               string
	Label            string
	Href             string
	Icon             string
	Order            int
	Requires         []string
	RequiresFeatures []string
}

// Definition is a feature module: identity, sub-states, the actions it
// governs, and any menu entries it contributes. Immutable once registered.
type Definition struct {
	ID          string
	Label       string
	Description string
	Icon        string
	States      []StateDef
	Actions     []Action
	Menu        []MenuItem
}

// RegisteredAction is an Action annotated with its owning feature.
type RegisteredAction struct {
	Action
	FeatureID string
}

// RegisteredMenuItem is a MenuItem annotated with its owning feature.
type RegisteredMenuItem struct {
	MenuItem
	FeatureID string
}

// Registry is the process-wide catalog of features and actions. Built once at
// startup from an explicit definition list and injected wherever needed; it is
// never mutated afterwards.
type Registry struct {
	features map[string]Definition
	order    []string
	actions  map[string]RegisteredAction
	menu     []RegisteredMenuItem
}

// NewRegistry registers every definition, failing on the first duplicate
// feature id or action code.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		features: make(map[string]Definition),
		actions:  make(map[string]RegisteredAction),
	}
	for _, def := range defs {
		if err := r.register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(def Definition) error {
	if _, ok := r.features[def.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateFeature, def.ID)
	}
	for _, action := range def.Actions {
		if _, ok := r.actions[action.Code]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateAction, action.Code)
		}
	}
	r.features[def.ID] = def
	r.order = append(r.order, def.ID)
	for _, action := range def.Actions {
		r.actions[action.Code] = RegisteredAction{Action: action, FeatureID: def.ID}
	}
	for _, item := range def.Menu {
		r.menu = append(r.menu, RegisteredMenuItem{MenuItem: item, FeatureID: def.ID})
	}
	return nil
}

// ListFeatures returns the definitions in registration order.
func (r *Registry) ListFeatures() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.features[id])
	}
	return out
}

// GetFeature returns the definition for id, or false when not registered.
func (r *Registry) GetFeature(id string) (Definition, bool) {
	def, ok := r.features[id]
	return def, ok
}

// ListActions returns every registered action across all features.
func (r *Registry) ListActions() []RegisteredAction {
	out := make([]RegisteredAction, 0, len(r.actions))
	for _, id := range r.order {
		for _, action := range r.features[id].Actions {
			out = append(out, r.actions[action.Code])
		}
	}
	return out
}

// GetAction returns the registered action for code, or false when unknown.
func (r *Registry) GetAction(code string) (RegisteredAction, bool) {
	a, ok := r.actions[code]
	return a, ok
}

// ListMenuItems returns all contributed menu entries sorted by Order.
func (r *Registry) ListMenuItems() []RegisteredMenuItem {
	out := make([]RegisteredMenuItem, len(r.menu))
	copy(out, r.menu)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Order < out[j-1].Order; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
