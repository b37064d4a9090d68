package runner

import (
	"context"
	"errors"
	"io"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// SwitchCondition says where a switch reads its condition value from:
// either a cell of a source (1-based row, named column) or the result code
// of an executable.
type SwitchCondition struct {
	Source     core.LoopSource
	Row        int
	Column     string
	Executable core.Executable
}

// Clause pairs a condition evaluator with the executable run when it matches.
type Clause struct {
	Name      string
	Evaluator core.ConditionEvaluator
	Target    core.Executable
}

// SwitchJob runs the target of the first clause matching its condition value,
// or the default target when no clause matches.
type SwitchJob struct {
	node
	condition SwitchCondition
	clauses   []Clause
	fallback  core.Executable
}

var _ core.Executable = (*SwitchJob)(nil)

func NewSwitchJob(locator core.Locator, vars core.Variables, condition SwitchCondition, clauses []Clause,
	fallback core.Executable, executor core.Executor) (*SwitchJob, error) {
	name := locator.Name()
	switch {
	case condition.Source == nil && condition.Executable == nil:
		return nil, exception.NewConfigurationError(name, "switch %s has no condition", locator)
	case condition.Source != nil && condition.Executable != nil:
		return nil, exception.NewConfigurationError(name, "switch %s has both a condition source and a condition executable", locator)
	case condition.Source != nil && condition.Row < 1:
		return nil, exception.NewConfigurationError(name, "switch %s: row numbers start at 1, got %d", locator, condition.Row)
	case condition.Source != nil && condition.Column == "":
		return nil, exception.NewConfigurationError(name, "switch %s: condition column is missing", locator)
	}
	for i, c := range clauses {
		if c.Evaluator == nil || c.Target == nil {
			return nil, exception.NewConfigurationError(name, "switch %s: clause %d needs a condition and a target", locator, i+1)
		}
	}
	return &SwitchJob{
		node:      newNode(locator, vars, executor),
		condition: condition,
		clauses:   clauses,
		fallback:  fallback,
	}, nil
}

func (j *SwitchJob) IsParallel() bool { return false }

func (j *SwitchJob) Clauses() []Clause { return j.clauses }

func (j *SwitchJob) Execute(ctx context.Context, scope *core.Scope) error {
	value, err := j.conditionValue(ctx, scope)
	if err != nil {
		return err
	}
	scope.Log.Debugf("condition value is '%s'", value)

	for _, c := range j.clauses {
		ok, err := c.Evaluator.Evaluate(value)
		if err != nil {
			return exception.NewRuntimeError(j.locator.Name(), "cannot evaluate clause %s", c.Name, err)
		}
		if ok {
			scope.Log.Infof("clause %s matches '%s', running %s", c.Name, value, c.Target.Locator())
			j.runTarget(ctx, scope, c.Target)
			return nil
		}
	}
	if j.fallback != nil {
		scope.Log.Infof("no clause matches '%s', running default %s", value, j.fallback.Locator())
		j.runTarget(ctx, scope, j.fallback)
		return nil
	}
	scope.Log.Infof("no clause matches '%s'", value)
	return nil
}

// runTarget runs target as a SINGLE execution with fail-on-error disabled.
func (j *SwitchJob) runTarget(ctx context.Context, scope *core.Scope, target core.Executable) core.Execution {
	if !scope.IsExecutable(ctx) {
		return nil
	}
	env := scope.Variables().With(core.ParamFailOnError, "false")
	e, err := j.create(ctx, scope, target, env, core.SyncSingle)
	if err != nil {
		scope.ReportError(err)
		return nil
	}
	e.Execute(ctx, scope.Thread)
	return e
}

func (j *SwitchJob) conditionValue(ctx context.Context, scope *core.Scope) (string, error) {
	if j.condition.Executable != nil {
		e := j.runTarget(ctx, scope, j.condition.Executable)
		if e == nil {
			return "", exception.NewRuntimeError(j.locator.Name(), "condition %s did not run", j.condition.Executable.Locator())
		}
		return core.ResultCode(e.State()), nil
	}
	return j.readCell(ctx)
}

func (j *SwitchJob) readCell(ctx context.Context) (string, error) {
	src := j.condition.Source
	cursor, err := src.Open(ctx)
	if err != nil {
		return "", exception.NewRuntimeError(j.locator.Name(), "cannot open source %s", src.Name(), err)
	}
	defer cursor.Close()

	var row core.Row
	for n := 1; n <= j.condition.Row; n++ {
		row, err = cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			return "", exception.NewRuntimeError(j.locator.Name(), "Row number %d does not exist in source %s", j.condition.Row, src.Name())
		}
		if err != nil {
			return "", exception.NewRuntimeError(j.locator.Name(), "cannot read source %s", src.Name(), err)
		}
	}
	value, ok := row.Lookup(j.condition.Column)
	if !ok {
		return "", exception.NewRuntimeError(j.locator.Name(), "Column %s does not exist in source %s", j.condition.Column, src.Name())
	}
	return value, nil
}
