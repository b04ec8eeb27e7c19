package repository

import (
	"context"

	"schoolorbit/backend/internal/identity/domain"
)

// UserRepository resolves accounts. Lookups return nil (not an error) when no
// matching active account exists.
type UserRepository interface {
	// FindByIdentifier resolves an account through the actor's profile
	// table. The identifier is the national-id digest for personnel and
	// guardians, and the plain student code for students.
	FindByIdentifier(ctx context.Context, actor domain.ActorType, identifier string) (*domain.User, error)
	// GetByID returns the account for id regardless of how it logs in.
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Grants is the role and permission set derived for one user.
type Grants struct {
	Roles []string
	Perms []string
}

// GrantSource resolves a user's current roles and permissions. Consulted on
// every login and refresh so revoked grants take effect at the next token,
// not at session end.
type GrantSource interface {
	GrantsFor(ctx context.Context, userID string) (Grants, error)
}
