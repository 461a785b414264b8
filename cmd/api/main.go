package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/Tomlord1122/qa-todo-api/internal/config"
	"github.com/Tomlord1122/qa-todo-api/internal/database"
	"github.com/Tomlord1122/qa-todo-api/internal/logger"
	"github.com/Tomlord1122/qa-todo-api/internal/repository"
	"github.com/Tomlord1122/qa-todo-api/internal/security"
	"github.com/Tomlord1122/qa-todo-api/internal/server"
	"github.com/Tomlord1122/qa-todo-api/internal/service"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, log zerolog.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The server has 5 seconds to finish the requests it is handling.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := dbService.Close(); err != nil {
		log.Error().Err(err).Msg("closing database")
	} else {
		log.Info().Msg("database connection pool closed")
	}

	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("loading configuration")
	}

	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	dbService, err := database.New(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	if err := dbService.Migrate(); err != nil {
		_ = dbService.Close()
		log.Fatal().Err(err).Msg("migrating database")
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	userRepo := repository.NewGormUserRepository(dbService.GetDB())
	todoRepo := repository.NewGormTodoRepository(dbService.GetDB())

	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)

	authService := service.NewAuthService(userRepo, hasher, tokens, log)
	todoService := service.NewTodoService(todoRepo, log)

	apiServer := server.New(cfg.Server, authService, todoService, tokens, dbService, log).HTTPServer()

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, log, done)

	log.Info().Str("addr", apiServer.Addr).Msg("starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("HTTP server ListenAndServe error")
		_ = dbService.Close()
		os.Exit(1)
	}

	<-done
	log.Info().Msg("graceful shutdown complete")
}
