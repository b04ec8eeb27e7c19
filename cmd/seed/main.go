// seed inserts development sample data for local testing.
// Idempotent: skips inserts when the dev admin (admin@schoolorbit.local)
// already exists.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"schoolorbit/backend/internal/config"
	"schoolorbit/backend/internal/db"
	"schoolorbit/backend/internal/feature/catalog"
	"schoolorbit/backend/internal/pii"
	"schoolorbit/backend/internal/security"
)

const (
	devAdminEmail = "admin@schoolorbit.local"
	devPassword   = "password123"
)

type seedUser struct {
	email      string
	name       string
	nationalID string // empty for students
	code       string // student code; empty otherwise
	actor      string // profile table selector
	roles      []string
}

var devUsers = []seedUser{
	{email: devAdminEmail, name: "Admin Dev", nationalID: "1101700000001", actor: "personnel", roles: []string{"admin"}},
	{email: "teacher@schoolorbit.local", name: "Teacher Dev", nationalID: "1101700000002", actor: "personnel", roles: []string{"teacher"}},
	{email: "student@schoolorbit.local", name: "Student Dev", code: "ST-0001", actor: "student", roles: []string{"student"}},
	{email: "guardian@schoolorbit.local", name: "Guardian Dev", nationalID: "1101700000003", actor: "guardian", roles: []string{"guardian"}},
}

// rolePermissions is the development grant matrix.
var rolePermissions = map[string][]string{
	"admin":    {"grade:manage", "attend:read", "attend:write", "attend:toggle", "class:read", "pii:view", "user:manage", "feature:manage"},
	"teacher":  {"grade:read", "grade:write", "attend:read", "attend:write", "class:read"},
	"student":  {"class:read"},
	"guardian": {"class:read"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var exists bool
	if err := pool.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM app_user WHERE email = $1)`, devAdminEmail).Scan(&exists); err != nil {
		log.Fatalf("seed: check existing: %v", err)
	}
	if exists {
		log.Println("seed: dev data already present, nothing to do")
		return
	}

	cipher, err := pii.NewCipher(cfg.EncryptionKey(), cfg.NationalIDSalt)
	if err != nil {
		log.Fatalf("seed: cipher: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	tx, err := pool.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("seed: begin: %v", err)
	}
	defer tx.Rollback()

	for _, u := range devUsers {
		if err := insertUser(ctx, tx, cfg.NationalIDSalt, cipher, u, passwordHash); err != nil {
			log.Fatalf("seed: user %s: %v", u.email, err)
		}
	}

	for role, perms := range rolePermissions {
		for _, perm := range perms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_permission (role_code, action_code) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`, role, perm); err != nil {
				log.Fatalf("seed: role permission %s/%s: %v", role, perm, err)
			}
		}
	}

	// Every catalog feature gets an explicit toggle row so the admin page
	// starts from persisted state.
	for _, def := range catalog.Definitions() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_toggle (id, code, name, description, enabled)
			 VALUES ($1, $2, $3, $4, TRUE)
			 ON CONFLICT (code) DO NOTHING`,
			uuid.NewString(), def.ID, def.Label, def.Description); err != nil {
			log.Fatalf("seed: feature %s: %v", def.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("seed: commit: %v", err)
	}
	log.Printf("seed: inserted %d dev users (password %q)", len(devUsers), devPassword)
}

func insertUser(ctx context.Context, tx *sql.Tx, salt string, cipher *pii.Cipher, u seedUser, passwordHash string) error {
	id := uuid.NewString()

	var envelope sql.NullString
	if u.nationalID != "" {
		enc, err := cipher.Encrypt(u.nationalID)
		if err != nil {
			return err
		}
		envelope = sql.NullString{String: enc, Valid: true}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO app_user (id, email, display_name, password_hash, national_id_enc, status)
		 VALUES ($1, $2, $3, $4, $5, 'active')`,
		id, u.email, u.name, passwordHash, envelope); err != nil {
		return err
	}

	switch u.actor {
	case "personnel":
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO personnel_profile (user_id, national_id_hash) VALUES ($1, $2)`,
			id, pii.HashIdentifier(u.nationalID, salt)); err != nil {
			return err
		}
	case "student":
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_profile (user_id, student_code) VALUES ($1, $2)`,
			id, u.code); err != nil {
			return err
		}
	case "guardian":
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO guardian_profile (user_id, national_id_hash) VALUES ($1, $2)`,
			id, pii.HashIdentifier(u.nationalID, salt)); err != nil {
			return err
		}
	}

	for _, role := range u.roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_role (user_id, role_code) VALUES ($1, $2)`, id, role); err != nil {
			return err
		}
	}
	return nil
}
