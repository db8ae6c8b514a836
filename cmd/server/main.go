/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payday ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, optional YAML)
  2. Configure logging and metrics
  3. Initialize SQLite store (migrations run on open)
  4. Seed absent sections from the seed file or configured defaults
  5. Create API handler, router and cron scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler, waiting for running jobs
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/payday.db"

  # Run with in-memory database and a demo seed
  PAYDAY_SEED=./seed.yaml ./server -db=":memory:"

ENVIRONMENT:
  See config/config.go for the full list.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background jobs
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/payday-engine/api"
	"github.com/warp/payday-engine/config"
	"github.com/warp/payday-engine/factory"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/metrics"
	"github.com/warp/payday-engine/rates"
	"github.com/warp/payday-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := newLogger(cfg)
	metrics.Init()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to initialize database")
	}
	defer store.Close()

	seed := factory.Defaults(cfg)
	if cfg.SeedFile != "" {
		if seed, err = factory.LoadFile(cfg.SeedFile); err != nil {
			logger.Fatal().Err(err).Str("seed_file", cfg.SeedFile).Msg("Failed to load seed")
		}
	}

	conv := generic.NewConverter(cfg.RateTable(), logger, func(from, to generic.Currency) {
		metrics.IncCurrencyFallback(string(from), string(to))
	})
	var feed *rates.Client
	if cfg.RateFeedURL != "" {
		feed = rates.NewClient(cfg.RateFeedURL, logger)
	}

	// Initialize handler
	handler, err := api.NewHandler(api.Options{
		Store:       store,
		Clock:       cfg.Clock(),
		Converter:   conv,
		Rates:       feed,
		Log:         logger,
		Reporting:   cfg.Reporting(),
		DueSoonDays: cfg.DueSoonDays,
		Seed:        seed,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid seed")
	}
	if err := handler.Seed(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed ledger")
	}

	scheduler := api.NewScheduler(handler, api.SchedulerConfig{
		Location:     cfg.Location(),
		ReminderSpec: cfg.ReminderCron,
		RolloverSpec: cfg.RolloverCron,
		RateSpec:     cfg.RateFeedCron,
	})
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("env", cfg.Env).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server stopped")
}

// newLogger writes JSON in production and console output elsewhere.
func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return log.Logger
}
