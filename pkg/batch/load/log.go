package load

import (
	"context"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// Log writes a message with ${var} references expanded. As a warning it
// also counts against the execution's warnings.
type Log struct {
	base
	message string
	warning bool
}

var _ core.Executable = (*Log)(nil)

func NewLog(name string, vars core.Variables, message string, warning bool) *Log {
	return &Log{base: newBase(name, vars), message: message, warning: warning}
}

func (l *Log) Execute(_ context.Context, scope *core.Scope) error {
	msg, err := Expand(l.message, scope.Variables())
	if err != nil {
		return err
	}
	if l.warning {
		scope.Warnf("%s", msg)
	} else {
		scope.Log.Infof("%s", msg)
	}
	return nil
}

// Fail always reports an error with its expanded message.
type Fail struct {
	base
	message string
}

var _ core.Executable = (*Fail)(nil)

func NewFail(name string, vars core.Variables, message string) *Fail {
	return &Fail{base: newBase(name, vars), message: message}
}

func (f *Fail) Execute(_ context.Context, scope *core.Scope) error {
	msg, err := Expand(f.message, scope.Variables())
	if err != nil {
		return err
	}
	return exception.NewRuntimeError("load", "%s", msg)
}
