package repository

import (
	"context"
	"time"
)

// ToggleRow is a persisted per-feature enable override.
type ToggleRow struct {
	Code          string
	Name          string
	Description   string
	Enabled       bool
	UpdatedBy     string
	UpdatedByName string
	UpdatedAt     time.Time
}

// StateRow is a persisted sub-state override for one feature.
type StateRow struct {
	FeatureCode string
	StateCode   string
	Value       bool
	UpdatedBy   string
	UpdatedAt   time.Time
}

// Repository persists feature runtime state. Implementations must be safe for
// concurrent use.
type Repository interface {
	ListToggles(ctx context.Context) ([]ToggleRow, error)
	ListStates(ctx context.Context) ([]StateRow, error)
	UpsertToggle(ctx context.Context, row ToggleRow) error
	UpsertState(ctx context.Context, row StateRow) error
}
