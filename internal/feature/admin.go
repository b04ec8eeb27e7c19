package feature

import (
	"context"
	"sort"
	"time"

	"schoolorbit/backend/internal/feature/repository"
)

// AdminState is one sub-state in the admin view: the effective value next to
// the declared default.
type AdminState struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Value       bool   `json:"value"`
	Default     bool   `json:"defaultValue"`
}

// AdminItem is the admin view of one feature: the union of its persisted row,
// registry definition, and effective runtime state.
type AdminItem struct {
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Enabled       bool         `json:"enabled"`
	Registered    bool         `json:"registered"`
	UpdatedBy     string       `json:"updatedBy,omitempty"`
	UpdatedByName string       `json:"updatedByName,omitempty"`
	UpdatedAt     *time.Time   `json:"updatedAt,omitempty"`
	States        []AdminState `json:"states"`
}

// ListAdminItems returns every feature known to either storage or the
// registry, sorted by code. Persisted rows win for display metadata, the
// snapshot wins for effective state.
func (r *Runtime) ListAdminItems(ctx context.Context) ([]AdminItem, error) {
	rows, err := r.repo.ListToggles(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := r.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	rowMap := make(map[string]repository.ToggleRow, len(rows))
	codes := make(map[string]struct{})
	for _, row := range rows {
		rowMap[row.Code] = row
		codes[row.Code] = struct{}{}
	}
	for _, def := range r.registry.ListFeatures() {
		codes[def.ID] = struct{}{}
	}
	for code := range snapshot {
		codes[code] = struct{}{}
	}

	ordered := make([]string, 0, len(codes))
	for code := range codes {
		ordered = append(ordered, code)
	}
	sort.Strings(ordered)

	out := make([]AdminItem, 0, len(ordered))
	for _, code := range ordered {
		def, registered := r.registry.GetFeature(code)
		row, hasRow := rowMap[code]
		runtime, inSnapshot := snapshot.Lookup(code)

		item := AdminItem{Code: code, Name: code, Enabled: false, Registered: registered}
		if registered {
			item.Name = def.Label
			item.Description = def.Description
		}
		if hasRow {
			item.Name = row.Name
			if row.Description != "" {
				item.Description = row.Description
			}
			item.Enabled = row.Enabled
			item.UpdatedBy = row.UpdatedBy
			item.UpdatedByName = row.UpdatedByName
			at := row.UpdatedAt
			item.UpdatedAt = &at
		}
		if inSnapshot {
			item.Enabled = runtime.Enabled
		}
		item.States = buildAdminStates(runtime.States, def)
		out = append(out, item)
	}
	return out, nil
}

// buildAdminStates merges runtime values with declared states. Declared
// states come first in declaration order; undeclared persisted states follow,
// sorted.
func buildAdminStates(runtimeStates map[string]bool, def Definition) []AdminState {
	seen := make(map[string]struct{}, len(def.States))
	out := make([]AdminState, 0, len(def.States))
	for _, st := range def.States {
		seen[st.Code] = struct{}{}
		value := st.Default
		if v, ok := runtimeStates[st.Code]; ok {
			value = v
		}
		out = append(out, AdminState{
			Code:        st.Code,
			Label:       st.Label,
			Description: st.Description,
			Value:       value,
			Default:     st.Default,
		})
	}

	var extra []string
	for code := range runtimeStates {
		if _, ok := seen[code]; !ok {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	for _, code := range extra {
		out = append(out, AdminState{Code: code, Label: code, Value: runtimeStates[code]})
	}
	return out
}
