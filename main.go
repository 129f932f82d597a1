package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axio-app/axio-be/internal/api"
	"github.com/axio-app/axio-be/internal/api/handlers"
	"github.com/axio-app/axio-be/internal/auth"
	"github.com/axio-app/axio-be/internal/config"
	"github.com/axio-app/axio-be/internal/database"
	"github.com/axio-app/axio-be/internal/logger"
	"github.com/axio-app/axio-be/internal/services"
	"github.com/axio-app/axio-be/internal/store"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration; a missing signing secret is fatal.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Environment)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	users := store.NewSQLiteUserStore(db)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenLifetime)
	authenticator := auth.NewAuthenticator(tokens, users)
	userService := services.NewUserService(users, hasher, tokens)

	// Set up router
	authHandler := handlers.NewAuthHandler(userService, cfg.IsDevelopment())
	router := api.NewRouter(cfg, authHandler, authenticator)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("environment", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
