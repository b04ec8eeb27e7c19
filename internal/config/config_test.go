package config

import (
	"os"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8787" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8787")
	}
	if cfg.AccessTTL != "15m" {
		t.Errorf("AccessTTL = %q, want %q", cfg.AccessTTL, "15m")
	}
	if cfg.RefreshTTL != "336h" {
		t.Errorf("RefreshTTL = %q, want %q", cfg.RefreshTTL, "336h")
	}
	if cfg.NationalIDSalt != "default_salt" {
		t.Errorf("NationalIDSalt = %q, want %q", cfg.NationalIDSalt, "default_salt")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false")
	}
	if cfg.AuditKafkaTopic != "schoolorbit-audit" {
		t.Errorf("AuditKafkaTopic = %q, want default", cfg.AuditKafkaTopic)
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load: want error for short JWT_SECRET")
	}
}

func TestLoad_ProductionRequiresSecureCookies(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load: want error when APP_ENV=production and COOKIE_SECURE=false")
	}

	os.Setenv("COOKIE_SECURE", "true")
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_BcryptCostBounds(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load: want error for BCRYPT_COST out of range")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{AccessTTL: "5m", RefreshTTL: "24h", CleanupInterval: "30m"}
	if got := cfg.AccessTokenTTL(); got != 5*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 5m", got)
	}
	if got := cfg.RefreshSessionTTL(); got != 24*time.Hour {
		t.Errorf("RefreshSessionTTL = %v, want 24h", got)
	}
	if got := cfg.CleanupTick(); got != 30*time.Minute {
		t.Errorf("CleanupTick = %v, want 30m", got)
	}

	bad := &Config{AccessTTL: "bogus", RefreshTTL: "", CleanupInterval: "-1s"}
	if got := bad.AccessTokenTTL(); got != 15*time.Minute {
		t.Errorf("AccessTokenTTL fallback = %v, want 15m", got)
	}
	if got := bad.RefreshSessionTTL(); got != 336*time.Hour {
		t.Errorf("RefreshSessionTTL fallback = %v, want 336h", got)
	}
	if got := bad.CleanupTick(); got != time.Hour {
		t.Errorf("CleanupTick fallback = %v, want 1h", got)
	}
}

func TestEncryptionKey(t *testing.T) {
	cfg := &Config{NationalIDEncKey: ""}
	if cfg.EncryptionKey() != nil {
		t.Error("EncryptionKey: want nil for empty config")
	}
	cfg.NationalIDEncKey = "not-base64!!"
	if cfg.EncryptionKey() != nil {
		t.Error("EncryptionKey: want nil for malformed base64")
	}
	// 32 zero bytes.
	cfg.NationalIDEncKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	key := cfg.EncryptionKey()
	if len(key) != 32 {
		t.Errorf("EncryptionKey length = %d, want 32", len(key))
	}
}

func TestAuditKafkaBrokersList(t *testing.T) {
	cfg := &Config{AuditKafkaBrokers: " localhost:9092 , broker2:9092,, "}
	got := cfg.AuditKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("AuditKafkaBrokersList = %v", got)
	}
	empty := &Config{}
	if empty.AuditKafkaBrokersList() != nil {
		t.Error("AuditKafkaBrokersList: want nil for empty config")
	}
}
