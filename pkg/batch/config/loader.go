package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// ConfigLoader produces a Config.
type ConfigLoader interface {
	Load() (*Config, error)
}

// BytesConfigLoader loads configuration from an in-memory YAML document.
type BytesConfigLoader struct {
	data []byte
}

func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load parses the YAML over the defaults and applies environment overrides.
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()
	if len(l.data) > 0 {
		if err := yaml.Unmarshal(l.data, cfg); err != nil {
			return nil, exception.NewConfigurationError("config", "failed to parse YAML configuration", err)
		}
	}
	loadEnvVars(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FileConfigLoader loads configuration from a YAML file. An empty path yields defaults.
type FileConfigLoader struct {
	path string
}

func NewFileConfigLoader(path string) *FileConfigLoader {
	return &FileConfigLoader{path: path}
}

func (l *FileConfigLoader) Load() (*Config, error) {
	var data []byte
	if l.path != "" {
		b, err := os.ReadFile(l.path)
		if err != nil {
			return nil, exception.NewConfigurationError("config", "failed to read configuration file %s", l.path, err)
		}
		data = b
	}
	return NewBytesConfigLoader(data).Load()
}

func envInt(name string, target *int) {
	s := os.Getenv(name)
	if s == "" {
		return
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Warnf("ignoring invalid value '%s' for %s", s, name)
		return
	}
	*target = v
}

func envBool(name string, target *bool) {
	s := os.Getenv(name)
	if s == "" {
		return
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		logger.Warnf("ignoring invalid value '%s' for %s", s, name)
		return
	}
	*target = v
}

func envString(name string, target *string) {
	if s := os.Getenv(name); s != "" {
		*target = s
	}
}

// loadEnvVars overrides individual settings from the process environment.
func loadEnvVars(cfg *Config) {
	envString("DATABASE_TYPE", &cfg.Database.Type)
	envString("DATABASE_HOST", &cfg.Database.Host)
	envInt("DATABASE_PORT", &cfg.Database.Port)
	envString("DATABASE_DATABASE", &cfg.Database.Database)
	envString("DATABASE_USER", &cfg.Database.User)
	envString("DATABASE_PASSWORD", &cfg.Database.Password)
	envString("DATABASE_SSLMODE", &cfg.Database.Sslmode)
	envString("DATABASE_ACCOUNT", &cfg.Database.Account)
	envString("DATABASE_WAREHOUSE", &cfg.Database.Warehouse)
	envString("DATABASE_SCHEMA", &cfg.Database.Schema)
	envString("DATABASE_ROLE", &cfg.Database.Role)
	envString("DATABASE_MIGRATION_PATH", &cfg.Database.MigrationPath)
	envInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.ConnectionPool.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.ConnectionPool.MaxIdleConns)
	envInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", &cfg.Database.ConnectionPool.ConnMaxLifetimeSeconds)

	envString("BATCH_JOB_NAME", &cfg.Batch.JobName)
	envString("BATCH_DEFINITIONS_PATH", &cfg.Batch.DefinitionsPath)
	envInt("BATCH_BULK_SIZE", &cfg.Batch.BulkSize)
	envBool("BATCH_FAIL_ON_ERROR", &cfg.Batch.FailOnError)
	envString("BATCH_REPOSITORY", &cfg.Batch.Repository)
	envInt("BATCH_MAX_CONCURRENCY", &cfg.Batch.MaxConcurrency)

	envString("SYSTEM_TIMEZONE", &cfg.System.Timezone)
	envString("SYSTEM_LOGGING_LEVEL", &cfg.System.Logging.Level)
	envString("SYSTEM_LOGGING_FORMAT", &cfg.System.Logging.Format)
}
