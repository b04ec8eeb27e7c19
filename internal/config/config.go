// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8787).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret signs access tokens with HS256. Must be at least 32 bytes.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// AccessTTL is the access token lifetime (e.g. "15m").
	AccessTTL string `mapstructure:"ACCESS_TTL"`
	// RefreshTTL is the refresh session lifetime (e.g. "336h" = 14d).
	RefreshTTL string `mapstructure:"REFRESH_TTL"`
	// NationalIDSalt salts the national-id lookup digest. Process-wide, not per record.
	NationalIDSalt string `mapstructure:"NATIONAL_ID_SALT"`
	// NationalIDEncKey is the base64-encoded 32-byte AES key for national-id
	// envelopes. When unset or not 32 bytes, a key is derived from the salt
	// (dev-only fallback; see internal/pii).
	NationalIDEncKey string `mapstructure:"NATIONAL_ID_ENC_KEY"`
	// CookieSecure sets the Secure attribute on auth cookies.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// CleanupInterval is how often cmd/worker deletes expired sessions (e.g. "1h").
	CleanupInterval string `mapstructure:"CLEANUP_INTERVAL"`

	// AuditKafkaBrokers is a comma-separated broker list; empty disables audit events.
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8787")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ACCESS_TTL", "15m")
	v.SetDefault("REFRESH_TTL", "336h") // 14d
	v.SetDefault("NATIONAL_ID_SALT", "default_salt")
	v.SetDefault("NATIONAL_ID_ENC_KEY", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("CLEANUP_INTERVAL", "1h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "schoolorbit-audit")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if cfg.Env == "production" && !cfg.CookieSecure {
		return nil, errors.New("config: COOKIE_SECURE must be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTokenTTL parses AccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshSessionTTL parses RefreshTTL as a time.Duration. Returns 336h (14 days) if unset or invalid.
func (c *Config) RefreshSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTL)
	if err != nil || d <= 0 {
		return 336 * time.Hour
	}
	return d
}

// CleanupTick parses CleanupInterval. Returns 1h if unset or invalid.
func (c *Config) CleanupTick() time.Duration {
	d, err := time.ParseDuration(c.CleanupInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// EncryptionKey returns the decoded 32-byte AES key, or nil when unset or malformed
// (callers fall back to salt-derived key material).
func (c *Config) EncryptionKey() []byte {
	if c.NationalIDEncKey == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(c.NationalIDEncKey)
	if err != nil || len(key) != 32 {
		return nil
	}
	return key
}

// AuditKafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if audit events are enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
