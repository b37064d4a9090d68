package source

import (
	"context"
	"io"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// Static is a source whose rows are fixed at configuration time.
type Static struct {
	name    string
	columns []string
	rows    [][]string
}

var _ core.LoopSource = (*Static)(nil)

// NewStatic checks that every row has one value per column.
func NewStatic(name string, columns []string, rows [][]string) (*Static, error) {
	if len(columns) == 0 {
		return nil, exception.NewConfigurationError("source", "static source %s has no columns", name)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, exception.NewConfigurationError("source", "static source %s declares column %s twice", name, c)
		}
		seen[c] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, exception.NewConfigurationError("source",
				"row %d of static source %s has %d values, expected %d", i+1, name, len(r), len(columns))
		}
	}
	return &Static{name: name, columns: columns, rows: rows}, nil
}

func (s *Static) Name() string { return s.name }

func (s *Static) Columns() []string { return s.columns }

func (s *Static) Open(context.Context) (core.Cursor, error) {
	return &staticCursor{src: s}, nil
}

type staticCursor struct {
	src    *Static
	pos    int
	closed bool
}

func (c *staticCursor) Next(ctx context.Context) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed || c.pos >= len(c.src.rows) {
		return nil, io.EOF
	}
	row := core.Record{Names: c.src.columns, Values: c.src.rows[c.pos]}
	c.pos++
	return row, nil
}

func (c *staticCursor) Close() error {
	c.closed = true
	return nil
}
