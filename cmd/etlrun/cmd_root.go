package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"etlflow/pkg/batch/config"
	"etlflow/pkg/batch/initializer"
	"etlflow/pkg/batch/util/logger"
)

var (
	flagConfig   string
	flagJobs     string
	flagEnvFile  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Run ETL workflow definitions",
	Long: appName + " runs sequential, parallel, loop and switch jobs described in YAML.\n\n" +
		"Settings come from --config and may be overridden by environment variables,\n" +
		"optionally read from --env-file.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(flagEnvFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "application YAML configuration")
	rootCmd.PersistentFlags().StringVarP(&flagJobs, "jobs", "j", "", "job definitions file or directory (overrides batch.definitions_path)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides system.logging.level)")
}

// loadEnvFile loads the dotenv file when it exists. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debugf("env file %s not found, using the process environment", path)
			return nil
		}
		return err
	}
	logger.Debugf("loaded env file %s", path)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.NewFileConfigLoader(flagConfig).Load()
	if err != nil {
		return nil, err
	}
	if flagJobs != "" {
		cfg.Batch.DefinitionsPath = flagJobs
	}
	if flagLogLevel != "" {
		cfg.System.Logging.Level = flagLogLevel
	}
	return cfg, nil
}

// setup loads the configuration and initializes every batch component. The
// caller must Close the returned initializer.
func setup(ctx context.Context) (*initializer.BatchInitializer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	bi := initializer.NewBatchInitializer(cfg)
	if err := bi.Initialize(ctx); err != nil {
		return nil, err
	}
	return bi, nil
}

func closeQuietly(bi *initializer.BatchInitializer) {
	if err := bi.Close(); err != nil {
		logger.Errorf("failed to release batch resources: %v", err)
	}
}
