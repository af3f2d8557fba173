package main

// Manage Postgres migrations for the recommendations store:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate -version   # print the applied schema version
//   go run ./cmd/migrate -down      # revert the latest migration

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"movierec-backend/internal/shared/config"
	"movierec-backend/internal/shared/storage/db"
	"movierec-backend/internal/shared/telemetry"
)

func main() {
	down := flag.Bool("down", false, "revert the most recent migration")
	version := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("migrate.config_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Init(telemetry.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	if err := run(ctx, sqlDB, *down, *version); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		sqlDB.Close()
		os.Exit(1)
	}
	sqlDB.Close()
}

func run(ctx context.Context, sqlDB *sql.DB, down, version bool) error {
	switch {
	case version:
		v, err := db.MigrationVersion(ctx, sqlDB)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case down:
		return db.RollbackMigration(ctx, sqlDB)
	default:
		return db.RunMigrations(ctx, sqlDB)
	}
}
