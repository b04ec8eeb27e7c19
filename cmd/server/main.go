package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolorbit/backend/internal/audit"
	"schoolorbit/backend/internal/authz"
	"schoolorbit/backend/internal/config"
	"schoolorbit/backend/internal/db"
	"schoolorbit/backend/internal/feature"
	"schoolorbit/backend/internal/feature/catalog"
	featurerepo "schoolorbit/backend/internal/feature/repository"
	"schoolorbit/backend/internal/httpapi"
	"schoolorbit/backend/internal/identity"
	identityrepo "schoolorbit/backend/internal/identity/repository"
	"schoolorbit/backend/internal/pii"
	"schoolorbit/backend/internal/policy"
	"schoolorbit/backend/internal/security"
	"schoolorbit/backend/internal/session"
	sessionrepo "schoolorbit/backend/internal/session/repository"
	"schoolorbit/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "schoolorbit-backend", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	registry, err := feature.NewRegistry(catalog.Definitions())
	if err != nil {
		log.Fatalf("feature catalog: %v", err)
	}
	runtime := feature.NewRuntime(registry, featurerepo.NewPostgresRepository(pool))
	facade := authz.NewFacade(policy.NewEngine(registry), runtime)

	cipher, err := pii.NewCipher(cfg.EncryptionKey(), cfg.NationalIDSalt)
	if err != nil {
		log.Fatalf("pii cipher: %v", err)
	}

	var emitter audit.Emitter = audit.Nop{}
	if kafkaEmitter := audit.NewKafkaEmitter(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic); kafkaEmitter != nil {
		emitter = kafkaEmitter
		defer kafkaEmitter.Close()
	}

	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.AccessTokenTTL())
	store := session.NewStore(sessionrepo.NewPostgresRepository(pool), cfg.RefreshSessionTTL())
	userRepo := identityrepo.NewPostgresRepository(pool)
	identitySvc := identity.NewService(
		userRepo,
		identityrepo.NewPostgresGrantSource(pool),
		store,
		tokens,
		security.NewHasher(cfg.BcryptCost),
		cfg.NationalIDSalt,
		emitter,
	)

	server := httpapi.NewServer(identitySvc, tokens, facade, runtime, cipher, userRepo,
		httpapi.CookieWriter{Secure: cfg.CookieSecure}, emitter)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("http server stopped")
}
