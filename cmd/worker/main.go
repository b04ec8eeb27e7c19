// Worker deletes expired refresh sessions and revoked sessions past their
// retention window on a fixed interval. Run one instance; deletes are
// idempotent so overlap with a second instance is harmless.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolorbit/backend/internal/config"
	"schoolorbit/backend/internal/db"
	"schoolorbit/backend/internal/session"
	sessionrepo "schoolorbit/backend/internal/session/repository"
)

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

	store := session.NewStore(sessionrepo.NewPostgresRepository(pool), cfg.RefreshSessionTTL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	tick := cfg.CleanupTick()
	log.Printf("worker: cleaning up sessions every %s", tick)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	cleanup := func() {
		runCtx, runCancel := context.WithTimeout(ctx, time.Minute)
		defer runCancel()
		n, err := store.CleanupExpired(runCtx)
		if err != nil {
			log.Printf("worker: cleanup failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("worker: removed %d sessions", n)
		}
	}

	cleanup()
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			cleanup()
		}
	}
}
