package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthtrack-api/internal/config"
	"healthtrack-api/internal/database"
	"healthtrack-api/internal/identity"
	"healthtrack-api/internal/logging"
	"healthtrack-api/internal/router"
	"healthtrack-api/internal/services"
	"healthtrack-api/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close store", "err", err)
		}
	}()

	provider, err := openIdentityProvider(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize identity provider", "provider", cfg.IdentityProvider, "err", err)
		os.Exit(1)
	}

	svc := router.Services{
		Auth:   services.NewAuthService(st, provider, cfg.JWTSecret, log),
		Users:  services.NewUserService(st, provider, cfg.AdminPIN, log),
		Habits: services.NewHabitService(st, log),
		Chat:   services.NewChatService(st, log),
	}
	if cfg.AdminPIN == "" {
		log.Warn("ADMIN_PIN is not set; admin promotions are disabled")
	}
	if cfg.SeedGlobalHabits {
		if _, err := svc.Habits.SeedGlobalDefinitions(ctx); err != nil {
			log.Error("failed to seed global habit definitions", "err", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           router.Setup(svc, router.Options{CORSOrigins: cfg.CORSOrigins, Logger: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.StoreDriver, "identity", cfg.IdentityProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return store.NewMemoryStore(), nil
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewPostgresStore(db), nil
}

func openIdentityProvider(ctx context.Context, cfg *config.Config) (identity.Provider, error) {
	if cfg.IdentityProvider == config.IdentityLocal {
		return identity.NewLocalProvider(cfg.JWTSecret), nil
	}
	return identity.NewFirebaseProvider(ctx, identity.FirebaseConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		APIKey:          cfg.FirebaseAPIKey,
	})
}
