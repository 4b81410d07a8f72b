// Package main implements the entry point for the Focus API server, which
// admits content-processing requests, schedules them against CPU, memory and
// GPU capacity, and tracks user sessions.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phrazzld/focus-api/internal/config"
	"github.com/phrazzld/focus-api/internal/platform/gemini"
	"github.com/phrazzld/focus-api/internal/platform/hostinfo"
	"github.com/phrazzld/focus-api/internal/platform/logger"
	"github.com/phrazzld/focus-api/internal/platform/postgres"
)

var errDatabaseRequired = errors.New("database.url is required for migrations")

func main() {
	configPath := flag.String("config", "", "Path to a config.yaml file (defaults to ./config.yaml if present)")
	migrateCmd := flag.String("migrate", "",
		"Run a database migration command and exit ("+strings.Join(postgres.MigrationCommands, "|")+")")
	flag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		log.Fatalf("Focus API server failed: %v", err)
	}
}

// run loads configuration and either applies migrations or serves until an
// interrupt or termination signal arrives.
func run(configPath, migrateCmd string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_configured", cfg.Database.URL != "",
		"cache_enabled", cfg.Cache.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateCmd != "" {
		return runMigrations(ctx, cfg, appLogger, migrateCmd)
	}

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = postgres.Open(ctx, cfg.Database.URL, appLogger)
		if err != nil {
			return err
		}
	}

	processor, err := gemini.NewProcessor(ctx, appLogger, cfg.LLM)
	if err != nil {
		closeDB(db, appLogger)
		return fmt.Errorf("failed to initialize content processor: %w", err)
	}

	app, err := newApplication(cfg, appLogger, db, processor, hostinfo.TotalMemoryMB)
	if err != nil {
		closeDB(db, appLogger)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func runMigrations(ctx context.Context, cfg *config.Config, appLogger *slog.Logger, command string) error {
	if cfg.Database.URL == "" {
		return errDatabaseRequired
	}
	db, err := postgres.Open(ctx, cfg.Database.URL, appLogger)
	if err != nil {
		return err
	}
	defer closeDB(db, appLogger)

	return postgres.Migrate(ctx, db, command, appLogger)
}

func closeDB(db *sql.DB, appLogger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		appLogger.Error("Error closing database connection", "error", err)
	}
}
