package domain

import "time"

// Session is the server-side record behind a refresh credential. At most one
// active secret hash exists per session at any time; every successful refresh
// replaces it.
type Session struct {
	ID          string
	UserID      string
	RefreshHash string // argon2id PHC hash of the current secret; never the secret itself
	UserAgent   string
	IP          string
	CreatedAt   time.Time
	RotatedAt   *time.Time // nil until the first refresh
	ExpiresAt   time.Time
	RevokedAt   *time.Time // nil when not revoked
}

// Active reports whether the session can still mint tokens at the given time.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
