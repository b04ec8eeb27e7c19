package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// PostgresRepository stores feature runtime state in the feature_toggle and
// feature_state tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a feature repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListToggles returns all toggle rows joined with the updating user's display
// name, ordered by code.
func (r *PostgresRepository) ListToggles(ctx context.Context) ([]ToggleRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ft.code, ft.name, COALESCE(ft.description, ''), ft.enabled,
		        COALESCE(ft.updated_by::text, ''), COALESCE(u.display_name, ''), ft.updated_at
		 FROM feature_toggle ft
		 LEFT JOIN app_user u ON u.id = ft.updated_by
		 ORDER BY ft.code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToggleRow
	for rows.Next() {
		var t ToggleRow
		if err := rows.Scan(&t.Code, &t.Name, &t.Description, &t.Enabled,
			&t.UpdatedBy, &t.UpdatedByName, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListStates returns all sub-state rows ordered by feature and state code.
func (r *PostgresRepository) ListStates(ctx context.Context) ([]StateRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT feature_code, state_code, value, COALESCE(updated_by::text, ''), updated_at
		 FROM feature_state
		 ORDER BY feature_code ASC, state_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StateRow
	for rows.Next() {
		var s StateRow
		if err := rows.Scan(&s.FeatureCode, &s.StateCode, &s.Value, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertToggle inserts or updates the toggle row keyed by code. Name and
// description are written only on insert so operator edits are not clobbered.
func (r *PostgresRepository) UpsertToggle(ctx context.Context, row ToggleRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feature_toggle (id, code, name, description, enabled, updated_by, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, '')::uuid, $7)
		 ON CONFLICT (code) DO UPDATE
		 SET enabled = EXCLUDED.enabled,
		     updated_by = EXCLUDED.updated_by,
		     updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), row.Code, row.Name, row.Description, row.Enabled, row.UpdatedBy, row.UpdatedAt)
	return err
}

// UpsertState inserts or updates the sub-state row keyed by (feature, state).
func (r *PostgresRepository) UpsertState(ctx context.Context, row StateRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feature_state (id, feature_code, state_code, value, updated_by, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)
		 ON CONFLICT (feature_code, state_code) DO UPDATE
		 SET value = EXCLUDED.value,
		     updated_by = EXCLUDED.updated_by,
		     updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), row.FeatureCode, row.StateCode, row.Value, row.UpdatedBy, row.UpdatedAt)
	return err
}
