/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the hour-balance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Build the slog logger
  3. Open the store (SQLite or Postgres) behind the holiday cache
  4. Create the balance service and API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)

ENVIRONMENT:
  APP_PORT, ALLOWED_ORIGINS, DB_DRIVER, DB_DSN, JWT_SECRET, LOG_LEVEL,
  FESTIVE_KEY_POLICY, TIMEZONE. A .env file in the working directory is
  loaded first. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  JWT_SECRET=dev ./server

  # Run with in-memory database
  JWT_SECRET=dev DB_DSN=":memory:" ./server

  # Run against Postgres
  JWT_SECRET=dev DB_DRIVER=postgres DB_DSN="postgres://localhost/carebalance" ./server

SEE ALSO:
  - api/server.go: Router configuration
  - balance/service.go: Reconciliation service
  - config/config.go: Configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/httplog/v3"

	"github.com/warp/carebalance/api"
	"github.com/warp/carebalance/balance"
	"github.com/warp/carebalance/config"
	"github.com/warp/carebalance/store"
	"github.com/warp/carebalance/store/cache"
	"github.com/warp/carebalance/store/postgres"
	"github.com/warp/carebalance/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize store
	base, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()
	st := cache.NewHolidayCache(base, cfg.Server.HolidayCacheTTL())

	// Initialize service and handler
	balances := balance.NewService(st, cfg.Policy(), logger)
	balances.MaxParallel = cfg.Balance.MaxParallel

	handler := api.NewHandler(st, balances, logger)
	handler.Location = cfg.Location()

	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		Logger:          logger,
		JWTAuth:         api.NewJWTAuth(cfg.Auth.JWTSecret),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.Int("port", cfg.Server.Port),
			slog.String("driver", cfg.Database.Driver),
			slog.String("festive_key_policy", cfg.Policy().String()),
			slog.String("timezone", cfg.Balance.Timezone))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.DSN, postgres.Options{MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		return pg, func() { pg.Close() }, nil
	default:
		lite, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return lite, func() { lite.Close() }, nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}

	opts.ReplaceAttr = httplog.SchemaECS.Concise(false).ReplaceAttr
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(
		slog.String("app", "carebalance"),
	)
}
