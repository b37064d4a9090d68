package component

import (
	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/load"
	"etlflow/pkg/batch/util/exception"
)

// LoadBuilder creates the load named name from its definition. db is nil
// when no database is configured.
type LoadBuilder func(name string, def jsl.Load, db database.DBConnection) (core.Executable, error)

// Builtins returns the builders of the load types known out of the box.
func Builtins() map[string]LoadBuilder {
	return map[string]LoadBuilder{
		jsl.LoadSQL:  buildSQL,
		jsl.LoadLog:  buildLog,
		jsl.LoadFail: buildFail,
	}
}

func buildSQL(name string, def jsl.Load, db database.DBConnection) (core.Executable, error) {
	if db == nil {
		return nil, exception.NewConfigurationError("component", "load %s runs SQL but no database is configured", name)
	}
	return load.NewSQLStatement(name, def.Variables, db, def.Statement), nil
}

func buildLog(name string, def jsl.Load, _ database.DBConnection) (core.Executable, error) {
	return load.NewLog(name, def.Variables, def.Message, def.Warning), nil
}

func buildFail(name string, def jsl.Load, _ database.DBConnection) (core.Executable, error) {
	msg := def.Message
	if msg == "" {
		msg = "load " + name + " failed"
	}
	return load.NewFail(name, def.Variables, msg), nil
}
