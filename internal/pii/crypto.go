// Package pii protects the national-id field: a deterministic salted digest
// for equality lookup, an authenticated AES-GCM envelope for display, and a
// masking helper for callers without decryption rights.
package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrDecryption is returned when an envelope is malformed, was tampered with,
// or was encrypted under a different key. Read paths must surface this as an
// operational error, never as a silent null.
var ErrDecryption = errors.New("pii: decryption failed")

const envelopeParts = 3

// HashIdentifier returns the hex sha256 digest of salt || plain. Deterministic
// by design: it exists purely for equality lookup and carries no
// confidentiality. The salt is process configuration, not per record.
func HashIdentifier(plain, salt string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(plain))
	return hex.EncodeToString(h.Sum(nil))
}

// Cipher encrypts and decrypts national-id values with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key. When key is nil the key is
// derived as sha256("enc-key" || salt). The derived path exists so development
// environments work without provisioning key material; it ties confidentiality
// to the lookup salt and must not be used in production.
func NewCipher(key []byte, salt string) (*Cipher, error) {
	if key == nil {
		h := sha256.New()
		h.Write([]byte("enc-key"))
		h.Write([]byte(salt))
		key = h.Sum(nil)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("pii: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plain with a fresh random nonce and returns the envelope
// base64(nonce).base64(ciphertext).base64(tag). Two encryptions of the same
// plaintext never produce the same envelope.
func (c *Cipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plain), nil)
	tagStart := len(sealed) - c.aead.Overhead()
	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		base64.StdEncoding.EncodeToString(sealed[tagStart:]),
	}, "."), nil
}

// Decrypt opens an envelope produced by Encrypt. Returns ErrDecryption when
// the component count is wrong, any component is not valid base64, or the
// authentication tag does not verify.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ".")
	if len(parts) != envelopeParts {
		return "", ErrDecryption
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrDecryption
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrDecryption
	}
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrDecryption
	}
	plain, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plain), nil
}

// Mask redacts a 13-digit national id for display, keeping only the last
// three digits in the conventional grouping (x-xxxx-xxxxx-NN-N). Inputs that
// are not exactly 13 digits get a generic redaction. Pure function.
func Mask(plain string) string {
	if len(plain) != 13 {
		return "***"
	}
	for _, r := range plain {
		if r < '0' || r > '9' {
			return "***"
		}
	}
	return fmt.Sprintf("x-xxxx-xxxxx-%s-%s", plain[10:12], plain[12:])
}
