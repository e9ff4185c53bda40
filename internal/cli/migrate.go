package cli

import (
	"fmt"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded schema migrations to the PostgreSQL database named by
storage.databaseUrl. Nothing is done for the in-memory store.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().String("database-url", "", "Database URL (overrides storage.databaseUrl)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return err
	}

	url := cfg.Storage.DatabaseURL
	if cmd.Flags().Changed("database-url") {
		url, _ = cmd.Flags().GetString("database-url")
	}
	if cfg.Storage.Driver != "postgres" && !cmd.Flags().Changed("database-url") {
		logger.Info("Storage driver needs no migrations", "driver", cfg.Storage.Driver)
		return nil
	}
	if url == "" {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage.databaseUrl is required for migrations", nil)
	}

	db, err := store.Connect(cmd.Context(), url, store.Options{PingTimeout: cfg.Storage.PingTimeout}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.LogError(err, "Failed to close database")
		}
	}()

	if err := store.RunMigrations(cmd.Context(), db); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Database migrations applied")
	return nil
}
