package connector

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/snowflakedb/gosnowflake"

	"etlflow/pkg/batch/config"
	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/util/exception"
)

type mysqlConnector struct{}

func (mysqlConnector) Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	return sql.Open("mysql", cfg.ConnectionString())
}

func (mysqlConnector) Dialect() database.Dialect { return database.DialectMySQL }

// postgresConnector serves PostgreSQL and Redshift, which speaks the same wire protocol.
type postgresConnector struct{}

func (postgresConnector) Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	return sql.Open("postgres", cfg.ConnectionString())
}

func (postgresConnector) Dialect() database.Dialect { return database.DialectPostgres }

type snowflakeConnector struct{}

func (snowflakeConnector) Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := snowflakeDSN(cfg)
	if err != nil {
		return nil, err
	}
	return sql.Open("snowflake", dsn)
}

func (snowflakeConnector) Dialect() database.Dialect { return database.DialectSnowflake }

func snowflakeDSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.Account == "" {
		return "", exception.NewConfigurationError("connector", "snowflake requires database.account")
	}
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
	if err != nil {
		return "", exception.NewConfigurationError("connector", "invalid snowflake settings", err)
	}
	return dsn, nil
}

func init() {
	RegisterConnector("mysql", mysqlConnector{})
	RegisterConnector("postgres", postgresConnector{})
	RegisterConnector("redshift", postgresConnector{})
	RegisterConnector("snowflake", snowflakeConnector{})
}
