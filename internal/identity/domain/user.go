package domain

import "time"

// ActorType selects which profile table an identifier is resolved against.
type ActorType string

const (
	ActorPersonnel ActorType = "personnel"
	ActorStudent   ActorType = "student"
	ActorGuardian  ActorType = "guardian"
)

// Valid reports whether t is a known actor type.
func (t ActorType) Valid() bool {
	switch t {
	case ActorPersonnel, ActorStudent, ActorGuardian:
		return true
	}
	return false
}

// User is the core account entity. PasswordHash is empty for accounts not
// configured for password login.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Title        string
	FirstName    string
	LastName     string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)
