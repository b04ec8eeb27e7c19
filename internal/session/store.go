// Package session manages long-lived refresh sessions: opaque credential
// issuance, verify-and-rotate on every refresh, reuse detection, and
// expiry cleanup.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolorbit/backend/internal/security"
	"schoolorbit/backend/internal/session/domain"
	"schoolorbit/backend/internal/session/repository"
)

// Sentinel errors; the HTTP boundary collapses both to a generic 401 so
// callers cannot distinguish which check failed.
var (
	ErrInvalidCredential = errors.New("invalid or expired refresh credential")
	ErrCredentialReuse   = errors.New("refresh credential reuse detected; all sessions revoked")
)

// revokedRetention is how long revoked sessions are kept for audit before
// CleanupExpired deletes them.
const revokedRetention = 7 * 24 * time.Hour

// ClientMeta is optional client information recorded on the session.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// Store issues and rotates refresh credentials. Credentials have the form
// <sessionID>.<secret>; only an argon2id hash of the secret is persisted.
type Store struct {
	repo repository.Repository
	ttl  time.Duration
	nowF func() time.Time
}

// NewStore returns a Store creating sessions with the given lifetime.
func NewStore(repo repository.Repository, ttl time.Duration) *Store {
	return &Store{repo: repo, ttl: ttl, nowF: func() time.Time { return time.Now().UTC() }}
}

// Create opens a new session for userID and returns its id together with the
// refresh credential. The secret inside the credential is returned exactly
// once and never stored.
func (s *Store) Create(ctx context.Context, userID string, meta ClientMeta) (sessionID, credential string, err error) {
	sessionID = uuid.New().String()
	secret, err := security.NewSecret()
	if err != nil {
		return "", "", err
	}
	hash, err := security.HashRefreshSecret(secret)
	if err != nil {
		return "", "", err
	}
	now := s.nowF()
	sess := &domain.Session{
		ID:          sessionID,
		UserID:      userID,
		RefreshHash: hash,
		UserAgent:   meta.UserAgent,
		IP:          meta.IP,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", "", err
	}
	return sessionID, sessionID + "." + secret, nil
}

// VerifyAndRotate validates a refresh credential and atomically installs a new
// secret, returning the owning user id and the replacement credential.
//
// A secret that fails to verify against the current hash of an otherwise live
// session is treated as theft evidence: some previously issued secret is being
// replayed, so every session of that user is revoked before ErrCredentialReuse
// is returned. A concurrent rotation losing the conditional hash swap lands on
// the same path; that false positive is the accepted cost of strict reuse
// detection.
func (s *Store) VerifyAndRotate(ctx context.Context, credential string) (userID, newCredential string, err error) {
	sessionID, secret, ok := splitCredential(credential)
	if !ok {
		// Credential predates the embedded-id format: fall back to scanning
		// unexpired sessions for a hash match.
		return s.verifyAndRotateLegacy(ctx, credential)
	}

	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return "", "", err
	}
	if sess == nil || !sess.Active(s.nowF()) {
		return "", "", ErrInvalidCredential
	}

	match, err := security.VerifyRefreshSecret(secret, sess.RefreshHash)
	if err != nil {
		return "", "", ErrInvalidCredential
	}
	if !match {
		if err := s.repo.RevokeAllForUser(ctx, sess.UserID); err != nil {
			return "", "", err
		}
		return "", "", ErrCredentialReuse
	}
	return s.rotate(ctx, sess)
}

func (s *Store) verifyAndRotateLegacy(ctx context.Context, secret string) (string, string, error) {
	sessions, err := s.repo.ListActive(ctx)
	if err != nil {
		return "", "", err
	}
	for _, sess := range sessions {
		match, err := security.VerifyRefreshSecret(secret, sess.RefreshHash)
		if err != nil || !match {
			continue
		}
		return s.rotate(ctx, sess)
	}
	return "", "", ErrInvalidCredential
}

// rotate installs a fresh secret on sess. The repository swap is conditional
// on the hash we verified against; if another request rotated in between,
// the presented secret is stale and the reuse policy applies.
func (s *Store) rotate(ctx context.Context, sess *domain.Session) (string, string, error) {
	newSecret, err := security.NewSecret()
	if err != nil {
		return "", "", err
	}
	newHash, err := security.HashRefreshSecret(newSecret)
	if err != nil {
		return "", "", err
	}
	swapped, err := s.repo.RotateHash(ctx, sess.ID, sess.RefreshHash, newHash, s.nowF())
	if err != nil {
		return "", "", err
	}
	if !swapped {
		if err := s.repo.RevokeAllForUser(ctx, sess.UserID); err != nil {
			return "", "", err
		}
		return "", "", ErrCredentialReuse
	}
	return sess.UserID, sess.ID + "." + newSecret, nil
}

// Revoke marks one session revoked (logout).
func (s *Store) Revoke(ctx context.Context, sessionID string) error {
	return s.repo.Revoke(ctx, sessionID)
}

// RevokeAllForUser revokes every session the user owns.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.repo.RevokeAllForUser(ctx, userID)
}

// CleanupExpired deletes sessions past expiry and sessions revoked more than
// the retention window ago. Returns the number of rows removed.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, revokedRetention)
}

// SessionID extracts the session id from a credential, or false for legacy
// bare secrets. It does not validate the secret part.
func SessionID(credential string) (string, bool) {
	id, _, ok := splitCredential(credential)
	return id, ok
}

// splitCredential parses <sessionID>.<secret>. The session id must be a UUID;
// anything else is treated as a legacy bare secret.
func splitCredential(credential string) (sessionID, secret string, ok bool) {
	i := strings.IndexByte(credential, '.')
	if i < 0 {
		return "", "", false
	}
	sessionID, secret = credential[:i], credential[i+1:]
	if secret == "" {
		return "", "", false
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", "", false
	}
	return sessionID, secret, true
}
