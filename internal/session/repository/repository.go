package repository

import (
	"context"
	"time"

	"schoolorbit/backend/internal/session/domain"
)

// Repository defines persistence for refresh sessions.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListActive returns all non-revoked, unexpired sessions. Only the legacy
	// credential path (no embedded session id) needs this scan.
	ListActive(ctx context.Context) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// RotateHash swaps the stored secret hash from oldHash to newHash in one
	// conditional update. Returns false when the stored hash no longer equals
	// oldHash, i.e. a concurrent rotation won.
	RotateHash(ctx context.Context, id, oldHash, newHash string, rotatedAt time.Time) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	// DeleteExpired removes sessions past expiry and sessions revoked longer
	// than retention ago. Returns the number of rows deleted.
	DeleteExpired(ctx context.Context, retention time.Duration) (int64, error)
}
