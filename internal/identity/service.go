// Package identity implements login, token refresh, and logout on top of the
// session store, token provider, and grant source.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"schoolorbit/backend/internal/audit"
	"schoolorbit/backend/internal/identity/domain"
	"schoolorbit/backend/internal/identity/repository"
	"schoolorbit/backend/internal/pii"
	"schoolorbit/backend/internal/security"
	"schoolorbit/backend/internal/session"
)

// ErrInvalidCredentials covers every authentication failure: unknown
// identifier, wrong password, suspended account, account without a password.
// Callers must not be able to tell these apart.
var ErrInvalidCredentials = errors.New("invalid credentials")

// sessionStore is the slice of *session.Store the service uses.
type sessionStore interface {
	Create(ctx context.Context, userID string, meta session.ClientMeta) (sessionID, credential string, err error)
	VerifyAndRotate(ctx context.Context, credential string) (userID, newCredential string, err error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// tokenIssuer is the slice of *security.TokenProvider the service uses.
type tokenIssuer interface {
	Issue(subject string, roles, perms []string, ctx json.RawMessage) (string, time.Time, error)
}

// Service authenticates users and manages their token lifecycle.
type Service struct {
	users    repository.UserRepository
	grants   repository.GrantSource
	sessions sessionStore
	tokens   tokenIssuer
	hasher   *security.Hasher
	idSalt   string
	audit    audit.Emitter
}

// NewService wires the identity service. emitter may be audit.Nop{}.
func NewService(
	users repository.UserRepository,
	grants repository.GrantSource,
	sessions sessionStore,
	tokens tokenIssuer,
	hasher *security.Hasher,
	idSalt string,
	emitter audit.Emitter,
) *Service {
	if emitter == nil {
		emitter = audit.Nop{}
	}
	return &Service{
		users:    users,
		grants:   grants,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		idSalt:   idSalt,
		audit:    emitter,
	}
}

// LoginInput carries one login attempt. ID is the national id for personnel
// and guardians, the student code for students.
type LoginInput struct {
	Actor    domain.ActorType
	ID       string
	Password string
	Meta     session.ClientMeta
}

// AuthResult is issued on successful login or refresh.
type AuthResult struct {
	UserID            string
	Roles             []string
	Perms             []string
	Ctx               json.RawMessage
	AccessToken       string
	AccessExpiresAt   time.Time
	RefreshCredential string
	CSRFToken         string
}

// Login authenticates the input and, on success, opens a refresh session and
// issues a claims token. Every failure is ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if !in.Actor.Valid() || in.ID == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	identifier := in.ID
	if in.Actor != domain.ActorStudent {
		identifier = pii.HashIdentifier(in.ID, s.idSalt)
	}

	user, err := s.users.FindByIdentifier(ctx, in.Actor, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		// Burn a comparison so unknown identifiers cost the same as
		// wrong passwords.
		_ = s.hasher.Compare("$2a$12$C6UzMDM.H6dfI/f/IKcEeO7ZnbLtE/Vb6iF1mSXlC3xkxg2kCkW2y", []byte(in.Password))
		s.audit.Emit(ctx, audit.Event{Type: audit.EventLoginFailed, Detail: map[string]any{"actor": string(in.Actor)}})
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(in.Password)); err != nil {
		s.audit.Emit(ctx, audit.Event{Type: audit.EventLoginFailed, Actor: user.ID, Detail: map[string]any{"actor": string(in.Actor)}})
		return nil, ErrInvalidCredentials
	}

	result, err := s.buildResult(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	_, credential, err := s.sessions.Create(ctx, user.ID, in.Meta)
	if err != nil {
		return nil, err
	}
	result.RefreshCredential = credential
	s.audit.Emit(ctx, audit.Event{Type: audit.EventLogin, Actor: user.ID, Detail: map[string]any{"actor": string(in.Actor)}})
	return result, nil
}

// Refresh rotates the presented credential and issues a fresh claims token
// with the user's current grants. Reuse detection inside the store already
// revoked the user's sessions by the time ErrCredentialReuse surfaces; it is
// reported to the audit stream and normalized for the caller.
func (s *Service) Refresh(ctx context.Context, credential string) (*AuthResult, error) {
	userID, newCredential, err := s.sessions.VerifyAndRotate(ctx, credential)
	if err != nil {
		if errors.Is(err, session.ErrCredentialReuse) {
			s.audit.Emit(ctx, audit.Event{Type: audit.EventReuseRevocation})
			return nil, session.ErrInvalidCredential
		}
		return nil, err
	}

	result, err := s.buildResult(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.RefreshCredential = newCredential
	return result, nil
}

// Logout revokes the presented session. Credentials in the current format
// revoke exactly that session; legacy bare secrets fall back to revoking all
// of userID's sessions when known.
func (s *Service) Logout(ctx context.Context, credential, userID string) error {
	if sessionID, ok := session.SessionID(credential); ok {
		if err := s.sessions.Revoke(ctx, sessionID); err != nil {
			return err
		}
	} else if userID != "" {
		if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
			return err
		}
	}
	if userID != "" {
		s.audit.Emit(ctx, audit.Event{Type: audit.EventLogout, Actor: userID})
	}
	return nil
}

// Me returns the account behind an authenticated user id, or nil when the
// account no longer exists.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// buildResult resolves grants and signs the claims token.
func (s *Service) buildResult(ctx context.Context, userID string) (*AuthResult, error) {
	grants, err := s.grants.GrantsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.Issue(userID, grants.Roles, grants.Perms, nil)
	if err != nil {
		return nil, err
	}
	csrf, err := security.NewSecret()
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		UserID:          userID,
		Roles:           grants.Roles,
		Perms:           grants.Perms,
		AccessToken:     token,
		AccessExpiresAt: expiresAt,
		CSRFToken:       csrf,
	}, nil
}
