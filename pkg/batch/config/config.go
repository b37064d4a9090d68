package config

import (
	"fmt"
	"strings"

	"etlflow/pkg/batch/util/exception"
)

// ConnectionPoolConfig holds database/sql pool settings.
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

type DatabaseConfig struct {
	// Type is one of "postgres", "redshift", "mysql" or "snowflake". Empty disables the database.
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"`

	// Snowflake only.
	Account   string `yaml:"account"`
	Warehouse string `yaml:"warehouse"`
	Schema    string `yaml:"schema"`
	Role      string `yaml:"role"`

	// MigrationPath is the directory holding the execution state schema migrations.
	MigrationPath  string               `yaml:"migration_path"`
	ConnectRetries int                  `yaml:"connect_retries"`
	RetryDelaySecs int                  `yaml:"retry_delay_seconds"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

// Enabled reports whether a database has been configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Type != ""
}

// ConnectionString returns the DSN understood by the database/sql driver and by golang-migrate.
// Snowflake DSNs are built by the connector itself.
func (c DatabaseConfig) ConnectionString() string {
	switch strings.ToLower(c.Type) {
	case "postgres", "redshift":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, c.Sslmode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	default:
		return ""
	}
}

type BatchConfig struct {
	// JobName is the job launched when none is given on the command line.
	JobName string `yaml:"job_name"`
	// DefinitionsPath points at the YAML job definitions file.
	DefinitionsPath string `yaml:"definitions_path"`
	// BulkSize is the loop batch size used when a loop does not declare one. 0 means unbounded.
	BulkSize int `yaml:"bulk_size"`
	// FailOnError is the default for the #failOnError execution parameter.
	FailOnError bool `yaml:"fail_on_error"`
	// DefaultContextVariables lists variables that a nested job may override even when
	// inherited from its parent.
	DefaultContextVariables []string `yaml:"default_context_variables"`
	// Repository selects where execution states are kept: "memory" or "sql".
	Repository string `yaml:"repository"`
	// MaxConcurrency bounds how many members of a parallel batch run at once; 0 is unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Batch    BatchConfig    `yaml:"batch"`
	System   SystemConfig   `yaml:"system"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO", Format: "console"},
		},
		Batch: BatchConfig{
			FailOnError: true,
			Repository:  "memory",
		},
		Database: DatabaseConfig{
			ConnectRetries: 5,
			RetryDelaySecs: 2,
		},
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Batch.BulkSize < 0 {
		return exception.NewConfigurationError("config", "batch.bulk_size must not be negative, got %d", c.Batch.BulkSize)
	}
	if c.Batch.MaxConcurrency < 0 {
		return exception.NewConfigurationError("config", "batch.max_concurrency must not be negative, got %d", c.Batch.MaxConcurrency)
	}
	switch strings.ToLower(c.Batch.Repository) {
	case "memory":
	case "sql":
		if !c.Database.Enabled() {
			return exception.NewConfigurationError("config", "batch.repository 'sql' requires a database section")
		}
	default:
		return exception.NewConfigurationError("config", "unknown batch.repository '%s'", c.Batch.Repository)
	}
	switch strings.ToLower(c.Database.Type) {
	case "", "postgres", "redshift", "mysql", "snowflake":
	default:
		return exception.NewConfigurationError("config", "unsupported database type '%s'", c.Database.Type)
	}
	for _, name := range c.Batch.DefaultContextVariables {
		if strings.TrimSpace(name) == "" {
			return exception.NewConfigurationError("config", "batch.default_context_variables contains an empty name")
		}
	}
	return nil
}
