package repository

import (
	"strings"

	"etlflow/pkg/batch/config"
	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// NewStateRepository selects the repository named by cfg.Batch.Repository.
// db may be nil when the memory repository is selected.
func NewStateRepository(cfg config.Config, db database.DBConnection) (StateRepository, error) {
	switch strings.ToLower(cfg.Batch.Repository) {
	case "", "memory":
		logger.Debugf("execution states are kept in memory")
		return NewMemoryStateRepository(), nil
	case "sql":
		if db == nil {
			return nil, exception.NewInitializationError("state_repository", "sql repository requires a database connection")
		}
		logger.Debugf("execution states are stored in the %s database", db.Dialect())
		return NewSQLStateRepository(db), nil
	default:
		return nil, exception.NewConfigurationError("state_repository", "unknown repository '%s'", cfg.Batch.Repository)
	}
}
