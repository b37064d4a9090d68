package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// MigrationsTable records the applied execution state schema versions.
const MigrationsTable = "etlflow_schema_migrations"

// MigrationURL builds the golang-migrate database URL for a DSN produced by
// config.DatabaseConfig.ConnectionString.
func MigrationURL(dbType, dsn string) (string, error) {
	var url string
	switch strings.ToLower(dbType) {
	case "postgres", "redshift":
		url = dsn
	case "mysql":
		url = "mysql://" + dsn
	default:
		return "", exception.NewConfigurationError("migration", "migrations are not supported for database type '%s'", dbType)
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "x-migrations-table=" + MigrationsTable, nil
}

// RunMigrations applies every pending up migration found in migrationsPath.
func RunMigrations(dbType, dsn, migrationsPath string) error {
	if migrationsPath == "" {
		logger.Infof("no migration path configured, skipping migrations")
		return nil
	}
	url, err := MigrationURL(dbType, dsn)
	if err != nil {
		return err
	}

	logger.Infof("applying migrations from %s (database type %s)", migrationsPath, dbType)
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), url)
	if err != nil {
		return exception.NewInitializationError("migration", "failed to create migration instance for %s", migrationsPath, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("database schema is up to date")
			return nil
		}
		return exception.NewInitializationError("migration", "failed to apply migrations from %s", migrationsPath, err)
	}
	logger.Infof("migrations applied")
	return nil
}
