package source

import (
	"context"
	"database/sql"
	"io"

	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// SQL is a source backed by a query. Every column is rendered as a string;
// NULL becomes the empty string.
type SQL struct {
	name  string
	query string
	db    database.DBConnection
}

var _ core.LoopSource = (*SQL)(nil)

func NewSQL(name string, db database.DBConnection, query string) (*SQL, error) {
	if db == nil {
		return nil, exception.NewConfigurationError("source", "sql source %s needs a database connection", name)
	}
	if query == "" {
		return nil, exception.NewConfigurationError("source", "sql source %s has no query", name)
	}
	return &SQL{name: name, query: query, db: db}, nil
}

func (s *SQL) Name() string { return s.name }

func (s *SQL) Open(ctx context.Context) (core.Cursor, error) {
	logger.Debugf("opening source %s: %s", s.name, s.query)
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, exception.NewRuntimeError("source", "query of source %s failed", s.name, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, exception.NewRuntimeError("source", "cannot read columns of source %s", s.name, err)
	}
	return &sqlCursor{name: s.name, rows: rows, columns: columns}, nil
}

type sqlCursor struct {
	name    string
	rows    *sql.Rows
	columns []string
}

func (c *sqlCursor) Next(ctx context.Context) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, exception.NewRuntimeError("source", "reading source %s failed", c.name, err)
		}
		return nil, io.EOF
	}

	cells := make([]sql.NullString, len(c.columns))
	dest := make([]any, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		return nil, exception.NewRuntimeError("source", "cannot scan row of source %s", c.name, err)
	}

	values := make([]string, len(cells))
	for i, cell := range cells {
		values[i] = cell.String
	}
	return core.Record{Names: c.columns, Values: values}, nil
}

func (c *sqlCursor) Close() error {
	return c.rows.Close()
}
