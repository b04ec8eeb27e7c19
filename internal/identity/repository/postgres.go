package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"schoolorbit/backend/internal/identity/domain"
)

// PostgresRepository reads accounts from app_user and the per-actor profile
// tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for lookups.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `au.id, COALESCE(au.email, ''), au.display_name,
	COALESCE(au.title, ''), COALESCE(au.first_name, ''), COALESCE(au.last_name, ''),
	COALESCE(au.password_hash, ''), au.status, au.created_at, au.updated_at`

// FindByIdentifier joins app_user against the actor's profile table. Only
// active accounts resolve; suspended accounts look identical to unknown
// identifiers.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, actor domain.ActorType, identifier string) (*domain.User, error) {
	var join, column string
	switch actor {
	case domain.ActorPersonnel:
		join, column = "personnel_profile", "national_id_hash"
	case domain.ActorStudent:
		join, column = "student_profile", "student_code"
	case domain.ActorGuardian:
		join, column = "guardian_profile", "national_id_hash"
	default:
		return nil, fmt.Errorf("unknown actor type %q", actor)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM app_user au
		 JOIN `+join+` p ON p.user_id = au.id
		 WHERE p.`+column+` = $1 AND au.status = 'active'`, identifier)
	return scanUser(row)
}

// GetByID returns the account for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM app_user au WHERE au.id = $1`, id)
	return scanUser(row)
}

// GetNationalIDEnvelope returns the stored encrypted national-id envelope
// for id, or empty when none is on file.
func (r *PostgresRepository) GetNationalIDEnvelope(ctx context.Context, id string) (string, error) {
	var envelope string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(national_id_enc, '') FROM app_user WHERE id = $1`, id).Scan(&envelope)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return envelope, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Title, &u.FirstName,
		&u.LastName, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// PostgresGrantSource derives grants from the role assignment tables.
type PostgresGrantSource struct {
	db *sql.DB
}

// NewPostgresGrantSource returns a grant source that uses the given db for lookups.
func NewPostgresGrantSource(db *sql.DB) *PostgresGrantSource {
	return &PostgresGrantSource{db: db}
}

// GrantsFor returns the user's role codes and the union of action codes those
// roles carry. A user with no assignments gets empty slices, not an error.
func (g *PostgresGrantSource) GrantsFor(ctx context.Context, userID string) (Grants, error) {
	var grants Grants

	rows, err := g.db.QueryContext(ctx,
		`SELECT role_code FROM user_role WHERE user_id = $1 ORDER BY role_code`, userID)
	if err != nil {
		return Grants{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return Grants{}, err
		}
		grants.Roles = append(grants.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return Grants{}, err
	}

	permRows, err := g.db.QueryContext(ctx,
		`SELECT DISTINCT rp.action_code
		 FROM role_permission rp
		 JOIN user_role ur ON ur.role_code = rp.role_code
		 WHERE ur.user_id = $1
		 ORDER BY rp.action_code`, userID)
	if err != nil {
		return Grants{}, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var perm string
		if err := permRows.Scan(&perm); err != nil {
			return Grants{}, err
		}
		grants.Perms = append(grants.Perms, perm)
	}
	return grants, permRows.Err()
}
