package connector

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"etlflow/pkg/batch/config"
	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// DBConnector opens a *sql.DB for one database type. Opening must not
// require the server to be reachable; connectivity is checked by the caller.
type DBConnector interface {
	Open(cfg config.DatabaseConfig) (*sql.DB, error)
	Dialect() database.Dialect
}

var (
	mu         sync.RWMutex
	connectors = make(map[string]DBConnector)
)

// RegisterConnector makes a connector available under dbType.
func RegisterConnector(dbType string, c DBConnector) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := connectors[dbType]; exists {
		logger.Warnf("connector for database type '%s' is already registered, overwriting", dbType)
	}
	connectors[dbType] = c
}

// Lookup returns the connector registered for dbType.
func Lookup(dbType string) (DBConnector, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := connectors[strings.ToLower(dbType)]
	return c, ok
}

// Types lists the registered database types.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(connectors))
	for t := range connectors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func applyPool(db *sql.DB, pool config.ConnectionPoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
}

// NewDBConnectionFromConfig opens the configured database and waits until it
// answers a ping, retrying up to cfg.ConnectRetries times.
func NewDBConnectionFromConfig(ctx context.Context, cfg config.DatabaseConfig) (database.DBConnection, error) {
	c, ok := Lookup(cfg.Type)
	if !ok {
		return nil, exception.NewConfigurationError("connector", "unsupported database type '%s' (registered: %s)", cfg.Type, strings.Join(Types(), ", "))
	}

	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(cfg.RetryDelaySecs) * time.Second

	var lastErr error
	for i := 1; i <= attempts; i++ {
		logger.Debugf("connecting to %s database (attempt %d/%d)", cfg.Type, i, attempts)
		db, err := c.Open(cfg)
		if err != nil {
			return nil, exception.NewInitializationError("connector", "failed to open %s database", cfg.Type, err)
		}
		applyPool(db, cfg.ConnectionPool)

		if lastErr = db.PingContext(ctx); lastErr == nil {
			logger.Infof("connected to %s database", cfg.Type)
			return database.NewSQLDBAdapter(db, c.Dialect()), nil
		}
		db.Close()
		logger.Warnf("ping of %s database failed: %v", cfg.Type, lastErr)

		if i < attempts {
			select {
			case <-ctx.Done():
				return nil, exception.NewInitializationError("connector", "connection to %s database cancelled", cfg.Type, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return nil, exception.NewInitializationError("connector", "could not reach %s database after %d attempts", cfg.Type, attempts, lastErr)
}
