package feature

// State is a feature's point-in-time runtime state.
type State struct {
	Enabled bool
	States  map[string]bool
}

// Snapshot maps feature code to runtime state. It is derived on demand by
// overlaying persisted overrides on registry defaults and must only be cached
// within a single request scope. Absence of a feature is meaningful: policy
// conditions referencing a missing entry fail closed, so callers must use
// Lookup rather than indexing the map directly.
type Snapshot map[string]State

// Lookup returns the state for code and whether the feature is known to the
// snapshot at all.
func (s Snapshot) Lookup(code string) (State, bool) {
	st, ok := s[code]
	return st, ok
}

// EnabledCodes returns the codes of all enabled features, for the public
// feature listing.
func (s Snapshot) EnabledCodes() []string {
	out := make([]string, 0, len(s))
	for code, st := range s {
		if st.Enabled {
			out = append(out, code)
		}
	}
	return out
}
