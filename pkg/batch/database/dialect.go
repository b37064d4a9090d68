package database

import (
	"strconv"
	"strings"
)

// Dialect identifies the bind parameter style of a SQL server.
type Dialect string

const (
	// DialectPostgres uses $1, $2, ... placeholders (PostgreSQL, Redshift).
	DialectPostgres Dialect = "postgres"
	// DialectMySQL uses ? placeholders.
	DialectMySQL Dialect = "mysql"
	// DialectSnowflake uses ? placeholders.
	DialectSnowflake Dialect = "snowflake"
)

// DialectFor maps a configured database type to its dialect.
func DialectFor(dbType string) Dialect {
	switch strings.ToLower(dbType) {
	case "mysql":
		return DialectMySQL
	case "snowflake":
		return DialectSnowflake
	default:
		return DialectPostgres
	}
}

// Rebind rewrites a query written with $N placeholders for d.
// Placeholders inside single quoted literals are left alone.
func Rebind(d Dialect, query string) string {
	if d == DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			inQuote = !inQuote
			b.WriteByte(c)
			continue
		}
		if c == '$' && !inQuote {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				if _, err := strconv.Atoi(query[i+1 : j]); err == nil {
					b.WriteByte('?')
					i = j - 1
					continue
				}
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
