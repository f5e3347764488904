// Command migrate applies the schema for the postgres KV backend.
package main

import (
	"context"
	"os"

	"resumaid/internal/shared/config"
	"resumaid/internal/shared/storage/db"
	"resumaid/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, cfg.LogFormat, nil)

	if err := run(context.Background(), cfg.DatabaseURL); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string) error {
	conn, err := db.Open(ctx, databaseURL, db.MigratePool().WithEnv())
	if err != nil {
		return err
	}
	defer conn.Close()

	version, err := db.Migrate(ctx, conn)
	if err != nil {
		return err
	}
	telemetry.Info("migrate.done", map[string]any{"version": version})
	return nil
}
