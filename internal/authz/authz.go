// Package authz is the single authorization entry point for request handlers.
// It binds a caller's grants, the policy engine, and a fresh feature snapshot
// into one decision.
package authz

import (
	"context"
	"errors"

	"schoolorbit/backend/internal/feature"
	"schoolorbit/backend/internal/policy"
)

// ErrForbidden is returned when a caller may not perform the action.
var ErrForbidden = errors.New("forbidden")

// Caller identifies the authenticated principal for a decision.
type Caller struct {
	UserID  string
	Granted []string
}

// snapshotLoader is satisfied by *feature.Runtime.
type snapshotLoader interface {
	LoadSnapshot(ctx context.Context) (feature.Snapshot, error)
}

// Facade makes authorization decisions. Handlers call Authorize or Evaluate
// and never touch the engine or snapshot directly.
type Facade struct {
	engine  *policy.Engine
	runtime snapshotLoader
}

// NewFacade returns a facade over the given engine and runtime.
func NewFacade(engine *policy.Engine, runtime snapshotLoader) *Facade {
	return &Facade{engine: engine, runtime: runtime}
}

// Authorize returns ErrForbidden when caller may not perform action, nil when
// allowed. Callers with no grants are denied before touching storage.
func (f *Facade) Authorize(ctx context.Context, caller Caller, action string) error {
	if len(caller.Granted) == 0 {
		return ErrForbidden
	}
	snapshot, err := f.runtime.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if !f.engine.Can(action, policy.Context{Granted: caller.Granted, Snapshot: snapshot}) {
		return ErrForbidden
	}
	return nil
}

// Evaluation is a reusable decision scope over one snapshot. It keeps a run
// of related checks (menu filtering, composite pages) consistent.
type Evaluation struct {
	engine   *policy.Engine
	caller   Caller
	Snapshot feature.Snapshot
}

// Evaluate loads one snapshot and returns a scope for repeated checks.
func (f *Facade) Evaluate(ctx context.Context, caller Caller) (*Evaluation, error) {
	snapshot, err := f.runtime.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Evaluation{engine: f.engine, caller: caller, Snapshot: snapshot}, nil
}

// Can reports whether the scope's caller may perform action.
func (e *Evaluation) Can(action string) bool {
	if len(e.caller.Granted) == 0 {
		return false
	}
	return e.engine.Can(action, policy.Context{Granted: e.caller.Granted, Snapshot: e.Snapshot})
}
