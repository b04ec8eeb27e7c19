package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schoolorbit/backend/internal/session/domain"
)

// PostgresRepository persists sessions in the auth_session table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_hash, user_agent, ip, created_at, rotated_at, expires_at, revoked_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM auth_session WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListActive returns all non-revoked sessions that have not expired.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM auth_session WHERE revoked_at IS NULL AND expires_at > NOW()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_session (id, user_id, refresh_hash, user_agent, ip, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.RefreshHash,
		nullString(s.UserAgent), nullString(s.IP),
		s.CreatedAt, s.ExpiresAt)
	return err
}

// RotateHash swaps the stored secret hash only if it still equals oldHash.
// The condition makes concurrent rotations on one session linearizable: the
// loser sees zero rows updated and must treat its secret as stale.
func (r *PostgresRepository) RotateHash(ctx context.Context, id, oldHash, newHash string, rotatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auth_session SET refresh_hash = $1, rotated_at = $2
		 WHERE id = $3 AND refresh_hash = $4 AND revoked_at IS NULL`,
		newHash, rotatedAt, id, oldHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke marks the session with the given id as revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_session SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeAllForUser revokes every session owned by userID.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_session SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}

// DeleteExpired removes sessions past expiry and sessions revoked longer than
// retention ago. Intended for the periodic cleanup worker, not per request.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_session
		 WHERE expires_at < NOW() OR revoked_at < NOW() - ($1 * interval '1 second')`,
		int64(retention.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var userAgent, ip sql.NullString
	var rotatedAt, revokedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.RefreshHash, &userAgent, &ip,
		&s.CreatedAt, &rotatedAt, &s.ExpiresAt, &revokedAt); err != nil {
		return nil, err
	}
	s.UserAgent = userAgent.String
	s.IP = ip.String
	if rotatedAt.Valid {
		s.RotatedAt = &rotatedAt.Time
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
