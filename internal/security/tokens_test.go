package security

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenProvider_IssueAndVerify(t *testing.T) {
	p := NewTokenProvider(testSecret, 15*time.Minute)
	ctx := json.RawMessage(`{"homeroom":"m1/2"}`)

	token, exp, err := p.Issue("u1", []string{"teacher"}, []string{"grade:read", "attend:write"}, ctx)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("Subject = %q, want u1", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "teacher" {
		t.Errorf("Roles = %v", claims.Roles)
	}
	if len(claims.Perms) != 2 || claims.Perms[0] != "grade:read" {
		t.Errorf("Perms = %v", claims.Perms)
	}
	if string(claims.Ctx) != string(ctx) {
		t.Errorf("Ctx = %s, want %s", claims.Ctx, ctx)
	}
}

func TestTokenProvider_VerifyExpired(t *testing.T) {
	p := NewTokenProvider(testSecret, -time.Minute)
	token, _, err := p.Issue("u1", nil, nil, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_VerifyWrongSecret(t *testing.T) {
	p := NewTokenProvider(testSecret, 15*time.Minute)
	token, _, err := p.Issue("u1", nil, nil, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewTokenProvider([]byte("ffffffffffffffffffffffffffffffff"), 15*time.Minute)
	if _, err := other.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify wrong secret: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_RejectsForeignAlgorithm(t *testing.T) {
	// A token signed with HS512 and the same secret must not verify: only the
	// configured algorithm is accepted.
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	p := NewTokenProvider(testSecret, 15*time.Minute)
	if _, err := p.Verify(foreign); err != ErrInvalidToken {
		t.Errorf("Verify HS512 token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_VerifyGarbage(t *testing.T) {
	p := NewTokenProvider(testSecret, 15*time.Minute)
	if _, err := p.Verify("not-a-token"); err != ErrInvalidToken {
		t.Errorf("Verify garbage: want ErrInvalidToken, got %v", err)
	}
}
