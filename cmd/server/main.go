/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the vacation tracker server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Seed demo users into an empty directory
  5. Create API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  See config/config.go. Every flag also reads an environment variable.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/vacations.db" -jwt-secret=change-me

  # Local development without tokens, demo data in memory
  ./server -db=":memory:" -fallback-user=test-employee -dev

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/api"
	"github.com/warp/vacation-tracker/calendar"
	"github.com/warp/vacation-tracker/config"
	"github.com/warp/vacation-tracker/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	handler := api.NewHandler(store, logger)

	if cfg.SeedUsers {
		if _, err := api.SeedUsers(ctx, store, logger); err != nil {
			return err
		}
		if cfg.Dev {
			if err := api.SeedVacations(ctx, store, handler.Vacations, calendar.Today(time.Local), logger); err != nil {
				logger.Warn("failed to seed demo vacations", zap.Error(err))
			}
		}
	}

	auth := api.NewAuthenticator(cfg.JWTSecret, cfg.FallbackUserID, store, logger)
	if cfg.FallbackUserID != "" {
		logger.Warn("requests without a token act as the fallback user", zap.String("user_id", cfg.FallbackUserID))
	}

	router := api.NewRouter(handler, auth, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
		Ping:        store.Ping,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
