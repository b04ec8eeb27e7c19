package httpapi

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolorbit/backend/internal/audit"
	"schoolorbit/backend/internal/authz"
)

type menuEntry struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon"`
}

// menu returns the navigation entries the caller may see: the static
// dashboard entry plus every registered menu item whose required actions all
// pass policy and whose required features are enabled.
func (s *Server) menu(c *gin.Context) {
	ev, err := s.authz.Evaluate(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, 500, "internal error")
		return
	}

	entries := []menuEntry{
		{Label: "แดชบอร์ด", Href: "/dashboard", Icon: "i-lucide-home"},
	}
items:
	for _, item := range s.runtime.Registry().ListMenuItems() {
		for _, action := range item.Requires {
			if !ev.Can(action) {
				continue items
			}
		}
		for _, code := range item.RequiresFeatures {
			state, ok := ev.Snapshot.Lookup(code)
			if !ok || !state.Enabled {
				continue items
			}
		}
		entries = append(entries, menuEntry{Label: item.Label, Href: item.Href, Icon: item.Icon})
	}
	respondData(c, 200, entries)
}

// listFeatures returns every registered definition with its runtime state,
// plus persisted state for features no longer registered.
func (s *Server) listFeatures(c *gin.Context) {
	snapshot, err := s.runtime.LoadSnapshot(c.Request.Context())
	if err != nil {
		respondError(c, 500, "internal error")
		return
	}

	registry := s.runtime.Registry()
	registered := make(map[string]struct{})
	features := make([]gin.H, 0)
	for _, def := range registry.ListFeatures() {
		registered[def.ID] = struct{}{}
		state, ok := snapshot.Lookup(def.ID)
		if !ok {
			state.Enabled = false
			state.States = map[string]bool{}
		}
		features = append(features, gin.H{
			"id":      def.ID,
			"label":   def.Label,
			"icon":    def.Icon,
			"enabled": state.Enabled,
			"states":  state.States,
		})
	}

	orphaned := make([]gin.H, 0)
	for code, state := range snapshot {
		if _, ok := registered[code]; ok {
			continue
		}
		orphaned = append(orphaned, gin.H{"id": code, "enabled": state.Enabled, "states": state.States})
	}

	respondData(c, 200, gin.H{
		"features": features,
		"enabled":  snapshot.EnabledCodes(),
		"orphaned": orphaned,
	})
}

func (s *Server) adminListFeatures(c *gin.Context) {
	if !s.authorize(c, "feature:manage") {
		return
	}
	items, err := s.runtime.ListAdminItems(c.Request.Context())
	if err != nil {
		respondError(c, 500, "internal error")
		return
	}
	respondData(c, 200, items)
}

type featureUpdateRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) adminSetFeature(c *gin.Context) {
	if !s.authorize(c, "feature:manage") {
		return
	}
	code := c.Param("code")
	var req featureUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		respondError(c, 400, "enabled is required")
		return
	}
	if _, ok := s.runtime.Registry().GetFeature(code); !ok {
		respondError(c, 404, "feature not found")
		return
	}

	actor := caller(c).UserID
	if err := s.runtime.SetFeatureEnabled(c.Request.Context(), code, *req.Enabled, actor); err != nil {
		respondError(c, 500, "internal error")
		return
	}
	s.audit.Emit(c.Request.Context(), audit.Event{
		Type:   audit.EventFeatureToggled,
		Actor:  actor,
		Detail: map[string]any{"feature": code, "enabled": *req.Enabled},
	})
	respondData(c, 200, gin.H{"code": code, "enabled": *req.Enabled})
}

type stateUpdateRequest struct {
	Value *bool `json:"value"`
}

func (s *Server) adminSetState(c *gin.Context) {
	if !s.authorize(c, "feature:manage") {
		return
	}
	code, state := c.Param("code"), c.Param("state")
	var req stateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		respondError(c, 400, "value is required")
		return
	}
	def, ok := s.runtime.Registry().GetFeature(code)
	if !ok {
		respondError(c, 404, "feature not found")
		return
	}
	declared := false
	for _, st := range def.States {
		if st.Code == state {
			declared = true
			break
		}
	}
	if !declared {
		respondError(c, 404, "state not found")
		return
	}

	actor := caller(c).UserID
	if err := s.runtime.SetStateValue(c.Request.Context(), code, state, *req.Value, actor); err != nil {
		respondError(c, 500, "internal error")
		return
	}
	s.audit.Emit(c.Request.Context(), audit.Event{
		Type:   audit.EventStateChanged,
		Actor:  actor,
		Detail: map[string]any{"feature": code, "state": state, "value": *req.Value},
	})
	respondData(c, 200, gin.H{"feature": code, "state": state, "value": *req.Value})
}

// authorize runs the facade for the request caller and writes the 403 on
// denial. Returns true when the handler may proceed.
func (s *Server) authorize(c *gin.Context, action string) bool {
	err := s.authz.Authorize(c.Request.Context(), caller(c), action)
	if err == nil {
		return true
	}
	if errors.Is(err, authz.ErrForbidden) {
		respondError(c, 403, "forbidden")
	} else {
		respondError(c, 500, "internal error")
	}
	return false
}
