package security

import (
	"crypto/rand"
	"encoding/base64"
)

// NewSecret returns 32 bytes of cryptographic randomness, base64url-encoded
// without padding. Used for refresh secrets and CSRF token values.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
