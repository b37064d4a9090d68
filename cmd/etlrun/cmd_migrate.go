package main

import (
	"github.com/spf13/cobra"

	"etlflow/pkg/batch/initializer"
	"etlflow/pkg/batch/util/exception"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the execution state schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Database.Enabled() || cfg.Database.MigrationPath == "" {
			return exception.NewConfigurationError("cli", "migrate needs database.type and database.migration_path")
		}
		return initializer.NewBatchInitializer(cfg).Migrate()
	},
}
