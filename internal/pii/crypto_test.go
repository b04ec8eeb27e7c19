package pii

import (
	"strings"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(nil, "test_salt")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestHashIdentifier_Deterministic(t *testing.T) {
	a := HashIdentifier("1234567890123", "salt1")
	b := HashIdentifier("1234567890123", "salt1")
	if a != b {
		t.Error("same input and salt produced different digests")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
	if c := HashIdentifier("1234567890123", "salt2"); c == a {
		t.Error("different salts produced the same digest")
	}
	if d := HashIdentifier("1234567890124", "salt1"); d == a {
		t.Error("different inputs produced the same digest")
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	c := testCipher(t)
	for _, plain := range []string{"1234567890123", "", "ü-umlaut-ids", "0000000000000"} {
		env, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plain, err)
		}
		if got := strings.Count(env, "."); got != 2 {
			t.Fatalf("envelope %q has %d separators, want 2", env, got)
		}
		out, err := c.Decrypt(env)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plain, err)
		}
		if out != plain {
			t.Errorf("round trip = %q, want %q", out, plain)
		}
	}
}

func TestCipher_NonceUniqueness(t *testing.T) {
	c := testCipher(t)
	a, err := c.Encrypt("1234567890123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt("1234567890123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Error("two envelopes of the same plaintext are identical")
	}
}

func TestCipher_DecryptTampered(t *testing.T) {
	c := testCipher(t)
	env, err := c.Encrypt("1234567890123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	parts := strings.Split(env, ".")
	// Replace the leading ciphertext bytes with a different valid base64 string.
	prefix := "AAAA"
	if strings.HasPrefix(parts[1], prefix) {
		prefix = "BBBB"
	}
	tampered := parts[0] + "." + prefix + parts[1][4:] + "." + parts[2]
	if _, err := c.Decrypt(tampered); err != ErrDecryption {
		t.Errorf("Decrypt tampered: want ErrDecryption, got %v", err)
	}
}

func TestCipher_DecryptWrongKey(t *testing.T) {
	c := testCipher(t)
	env, err := c.Encrypt("1234567890123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	other, err := NewCipher(nil, "another_salt")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	if _, err := other.Decrypt(env); err != ErrDecryption {
		t.Errorf("Decrypt with wrong key: want ErrDecryption, got %v", err)
	}
}

func TestCipher_DecryptMalformed(t *testing.T) {
	c := testCipher(t)
	for _, env := range []string{"", "onepart", "a.b", "a.b.c.d", "!!!.!!!.!!!"} {
		if _, err := c.Decrypt(env); err != ErrDecryption {
			t.Errorf("Decrypt(%q): want ErrDecryption, got %v", env, err)
		}
	}
}

func TestNewCipher_KeyLength(t *testing.T) {
	if _, err := NewCipher([]byte("short"), ""); err == nil {
		t.Error("NewCipher: want error for short key")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1234567890123", "x-xxxx-xxxxx-12-3"},
		{"9876543210987", "x-xxxx-xxxxx-98-7"},
		{"12345", "***"},
		{"abcdefghijklm", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
