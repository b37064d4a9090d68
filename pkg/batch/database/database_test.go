package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/util/exception"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect database.Dialect
		in      string
		want    string
	}{
		{"postgres untouched", database.DialectPostgres, "SELECT * FROM t WHERE a = $1", "SELECT * FROM t WHERE a = $1"},
		{"mysql", database.DialectMySQL, "UPDATE t SET a = $1 WHERE id = $12", "UPDATE t SET a = ? WHERE id = ?"},
		{"snowflake", database.DialectSnowflake, "SELECT $1", "SELECT ?"},
		{"literal kept", database.DialectMySQL, "SELECT '$1', $2", "SELECT '$1', ?"},
		{"bare dollar", database.DialectMySQL, "SELECT 'x' || $ FROM t", "SELECT 'x' || $ FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, database.Rebind(tt.dialect, tt.in))
		})
	}
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, database.DialectMySQL, database.DialectFor("MySQL"))
	assert.Equal(t, database.DialectSnowflake, database.DialectFor("snowflake"))
	assert.Equal(t, database.DialectPostgres, database.DialectFor("redshift"))
}

func TestMigrationURL(t *testing.T) {
	url, err := database.MigrationURL("postgres", "postgres://u:p@h:5432/d?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable&x-migrations-table=etlflow_schema_migrations", url)

	url, err = database.MigrationURL("mysql", "u:p@tcp(h:3306)/d")
	require.NoError(t, err)
	assert.Equal(t, "mysql://u:p@tcp(h:3306)/d?x-migrations-table=etlflow_schema_migrations", url)

	_, err = database.MigrationURL("snowflake", "x")
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestRunMigrationsWithoutPathIsNoop(t *testing.T) {
	assert.NoError(t, database.RunMigrations("postgres", "ignored", ""))
}
