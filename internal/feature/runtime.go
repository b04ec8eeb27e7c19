package feature

import (
	"context"
	"time"

	"schoolorbit/backend/internal/feature/repository"
)

// Runtime overlays persisted toggle and sub-state rows on the registry's
// declared defaults. It holds no cache; every LoadSnapshot reads storage, and
// callers that need consistency across several checks reuse one Snapshot.
type Runtime struct {
	registry *Registry
	repo     repository.Repository
	nowF     func() time.Time
}

// NewRuntime returns a runtime over the given registry and repository.
func NewRuntime(registry *Registry, repo repository.Repository) *Runtime {
	return &Runtime{registry: registry, repo: repo, nowF: time.Now}
}

// Registry exposes the underlying catalog.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// LoadSnapshot builds the current runtime view. A feature with no toggle row
// is enabled; a sub-state with no row takes its declared default. Rows for
// features that were never registered still surface, so stale grants keep
// working while a module is being retired.
func (r *Runtime) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	toggles, err := r.repo.ListToggles(ctx)
	if err != nil {
		return nil, err
	}
	states, err := r.repo.ListStates(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(Snapshot)
	for _, row := range toggles {
		snapshot[row.Code] = State{Enabled: row.Enabled, States: map[string]bool{}}
	}
	for _, row := range states {
		entry, ok := snapshot[row.FeatureCode]
		if !ok {
			entry = State{Enabled: true, States: map[string]bool{}}
		}
		entry.States[row.StateCode] = row.Value
		snapshot[row.FeatureCode] = entry
	}
	for _, def := range r.registry.ListFeatures() {
		entry, ok := snapshot[def.ID]
		if !ok {
			entry = State{Enabled: true, States: map[string]bool{}}
		}
		for _, st := range def.States {
			if _, set := entry.States[st.Code]; !set {
				entry.States[st.Code] = st.Default
			}
		}
		snapshot[def.ID] = entry
	}
	return snapshot, nil
}

// SetFeatureEnabled upserts the enable flag for code, recording the acting
// user. The code does not need to be registered; unknown codes persist with
// the code itself as display name.
func (r *Runtime) SetFeatureEnabled(ctx context.Context, code string, enabled bool, actor string) error {
	row := repository.ToggleRow{
		Code:      code,
		Name:      code,
		Enabled:   enabled,
		UpdatedBy: actor,
		UpdatedAt: r.nowF(),
	}
	if def, ok := r.registry.GetFeature(code); ok {
		row.Name = def.Label
		row.Description = def.Description
	}
	return r.repo.UpsertToggle(ctx, row)
}

// SetStateValue upserts a sub-state override, recording the acting user.
func (r *Runtime) SetStateValue(ctx context.Context, featureCode, stateCode string, value bool, actor string) error {
	return r.repo.UpsertState(ctx, repository.StateRow{
		FeatureCode: featureCode,
		StateCode:   stateCode,
		Value:       value,
		UpdatedBy:   actor,
		UpdatedAt:   r.nowF(),
	})
}
