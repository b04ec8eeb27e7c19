package security

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, signed
	// with the wrong key, or signed with any algorithm other than HS256.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the session claims carried by the access token: who is calling,
// their role codes, their granted capability codes, and an opaque context blob
// the core never interprets.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string        `json:"roles"`
	Perms []string        `json:"perms"`
	Ctx   json.RawMessage `json:"ctx,omitempty"`
}

// TokenProvider issues and verifies short-lived access tokens signed with a
// single symmetric HS256 secret. There is no algorithm negotiation: Verify
// rejects any token whose header names a different algorithm, which closes the
// usual RS256/HS256 confusion attack.
type TokenProvider struct {
	secret    []byte
	accessTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with secret. accessTTL is
// the claims lifetime; expiry is the only revocation mechanism for issued
// tokens.
func NewTokenProvider(secret []byte, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, accessTTL: accessTTL}
}

// Issue builds and signs claims for subject with the given role and capability
// codes. iat is now, exp is now + the configured lifetime. ctx is carried
// verbatim. Returns the signed token and its expiry.
func (p *TokenProvider) Issue(subject string, roles, perms []string, ctx json.RawMessage) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles: roles,
		Perms: perms,
		Ctx:   ctx,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates the token (HS256 signature and expiry) and
// returns its claims. There is no grace period past expiry.
func (p *TokenProvider) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
