// Package audit emits security-relevant events to a Kafka topic. Emission is
// best effort; a broker outage never blocks or fails the triggering request.
package audit

import (
	"context"
	"time"
)

// Event types emitted by the auth and feature surfaces.
const (
	EventLogin           = "auth.login"
	EventLoginFailed     = "auth.login_failed"
	EventLogout          = "auth.logout"
	EventReuseRevocation = "auth.credential_reuse_revocation"
	EventFeatureToggled  = "feature.toggled"
	EventStateChanged    = "feature.state_changed"
)

// Event is one audit record.
type Event struct {
	Type   string         `json:"type"`
	Actor  string         `json:"actor,omitempty"`
	At     time.Time      `json:"at"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Emitter publishes audit events.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Nop discards every event. Used when no brokers are configured.
type Nop struct{}

// Emit does nothing.
func (Nop) Emit(context.Context, Event) {}
