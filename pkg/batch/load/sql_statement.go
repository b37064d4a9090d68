package load

import (
	"context"

	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// SQLStatement executes one statement after substituting ${var} references
// with the values of the load's environment.
type SQLStatement struct {
	base
	db        database.DBConnection
	statement string
}

var _ core.Executable = (*SQLStatement)(nil)

func NewSQLStatement(name string, vars core.Variables, db database.DBConnection, statement string) *SQLStatement {
	return &SQLStatement{base: newBase(name, vars), db: db, statement: statement}
}

func (s *SQLStatement) Validate() error {
	if s.db == nil {
		return exception.NewConfigurationError("load", "%s needs a database connection", s.locator)
	}
	if s.statement == "" {
		return exception.NewConfigurationError("load", "%s has no statement", s.locator)
	}
	return nil
}

func (s *SQLStatement) Execute(ctx context.Context, scope *core.Scope) error {
	if err := s.Validate(); err != nil {
		return err
	}
	stmt, err := Expand(s.statement, scope.Variables())
	if err != nil {
		return err
	}
	scope.Log.Debugf("executing: %s", stmt)
	res, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return exception.NewRuntimeError("load", "%s failed", s.locator, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		scope.Log.Infof("%d rows affected", n)
	}
	return nil
}
