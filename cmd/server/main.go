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

	"accounts/backend/internal/config"
	"accounts/backend/internal/httpserver"
	"accounts/backend/internal/infrastructure/password"
	"accounts/backend/internal/infrastructure/postgres"
	"accounts/backend/internal/infrastructure/token"
	"accounts/backend/internal/logging"
	"accounts/backend/internal/ratelimit"
	authusecase "accounts/backend/internal/usecase/auth"
)

func main() {
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	rootCtx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Error(rootCtx, "failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := postgres.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Error(rootCtx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		log.Error(rootCtx, "failed to run database migrations", "error", err)
		os.Exit(1)
	}

	tokenManager := token.NewJWTManager(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		cfg.TokenIssuer,
	)
	hasher := password.NewBcryptHasher(cfg.BcryptCost)
	users := postgres.NewUserRepository(db.Pool)
	authService := authusecase.NewService(users, tokenManager, hasher)
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)

	server := httpserver.NewServer(cfg, authService, users, limiter, log)
	log.Info(rootCtx, "HTTP server listening", "addr", server.Addr(), "transport", cfg.TokenTransport)

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info(rootCtx, "HTTP server closed")
				return
			}
			log.Error(rootCtx, "server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error(rootCtx, "graceful shutdown failed", "error", err)
	} else {
		log.Info(rootCtx, "graceful shutdown completed")
	}
}
