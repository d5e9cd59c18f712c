package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/store"
	"github.com/marketengine/binary-engine/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema and exit",
	Long: `Connects to the configured Postgres database and applies its schema.

The connection itself creates every table with CREATE TABLE IF NOT EXISTS,
so this command is safe to run repeatedly; it exits immediately once the
connection and schema application succeed. It is a no-op when
STORAGE_MODE is "console".`,
	RunE: runMigrate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.StorageMode != "postgres" {
		logger.Info("migrate-skipped", zap.String("storage-mode", cfg.StorageMode))
		return nil
	}

	ctx := context.Background()
	pg, err := store.NewPostgres(ctx, &store.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	defer func() {
		_ = pg.Close()
	}()

	logger.Info("migrate-complete", zap.String("database", cfg.PostgresDB))
	return nil
}
