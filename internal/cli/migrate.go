package cli

import (
	"fmt"

	"waffle-pos-backend/internal/config"
	"waffle-pos-backend/internal/database"
	"waffle-pos-backend/internal/logger"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the Postgres schema",
	Long: `Runs the schema migration against the configured Postgres database,
including the partial unique index that allows one open shift per cashier.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Storage.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate needs the postgres backend, configured backend is %q", cfg.Storage.Backend)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return database.Migrate(db)
}
