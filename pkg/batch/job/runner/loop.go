package runner

import (
	"context"
	"errors"
	"io"
	"strings"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// LoopJob runs its single child once per row of a source, binding the row's
// columns to variables of the same name. When parallel, executions are
// collected into batches of bulkSize; a bulkSize of 0 collects every row
// into one batch.
type LoopJob struct {
	node
	child    core.Child
	source   core.LoopSource
	parallel bool
	bulkSize int
	batches  core.BatchRunner
}

var _ core.Executable = (*LoopJob)(nil)

func NewLoopJob(locator core.Locator, vars core.Variables, source core.LoopSource, children []core.Child,
	parallel bool, bulkSize int, executor core.Executor, batches core.BatchRunner) (*LoopJob, error) {
	if len(children) != 1 {
		return nil, exception.NewConfigurationError(locator.Name(), "loop %s needs exactly one child, got %d", locator, len(children))
	}
	if children[0].Executable == nil {
		return nil, exception.NewConfigurationError(locator.Name(), "loop %s has an empty child", locator)
	}
	if source == nil {
		return nil, exception.NewConfigurationError(locator.Name(), "loop %s has no source", locator)
	}
	if bulkSize < 0 {
		return nil, exception.NewConfigurationError(locator.Name(), "loop %s has negative bulk size %d", locator, bulkSize)
	}
	return &LoopJob{
		node:     newNode(locator, vars, executor),
		child:    children[0],
		source:   source,
		parallel: parallel,
		bulkSize: bulkSize,
		batches:  batches,
	}, nil
}

func (j *LoopJob) IsParallel() bool { return j.parallel }

func (j *LoopJob) Child() core.Child { return j.child }

func (j *LoopJob) BulkSize() int { return j.bulkSize }

func (j *LoopJob) Execute(ctx context.Context, scope *core.Scope) error {
	cursor, err := j.source.Open(ctx)
	if err != nil {
		return exception.NewRuntimeError(j.locator.Name(), "cannot open source %s", j.source.Name(), err)
	}
	defer func() {
		if err := cursor.Close(); err != nil {
			scope.Log.Warnf("closing source %s: %v", j.source.Name(), err)
		}
	}()

	row, err := cursor.Next(ctx)
	if errors.Is(err, io.EOF) {
		return exception.NewRuntimeError(j.locator.Name(), "The source %s is empty.", j.source.Name())
	}
	if err != nil {
		return exception.NewRuntimeError(j.locator.Name(), "cannot read source %s", j.source.Name(), err)
	}

	env := scope.Variables()
	if err := j.checkColumns(scope, env, row); err != nil {
		return err
	}

	var (
		pending   []core.Execution
		exhausted bool
		rows      int
	)
	for {
		if !scope.IsExecutable(ctx) {
			break
		}
		rows++
		vars := bind(env, row)

		switch {
		case !j.parallel && j.child.Kind == core.LoadNode:
			runLoad(ctx, scope, j.child.Executable, vars)
		case !j.parallel:
			e, err := j.create(ctx, scope, j.child.Executable, vars, core.SyncSingle)
			if err != nil {
				scope.ReportError(err)
				return nil
			}
			if runSingle(ctx, scope, e) == stepStop {
				return nil
			}
		default:
			e, err := j.create(ctx, scope, j.child.Executable, vars, core.SyncParallel)
			if err != nil {
				abortPending(scope, pending)
				scope.ReportError(err)
				return nil
			}
			pending = append(pending, e)
			if j.bulkSize > 0 && len(pending) >= j.bulkSize {
				j.batches.Run(ctx, scope.Thread, pending)
				pending = nil
			}
		}

		row, err = cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			exhausted = true
			break
		}
		if err != nil {
			scope.ReportError(exception.NewRuntimeError(j.locator.Name(), "cannot read row %d of source %s", rows+1, j.source.Name(), err))
			break
		}
	}

	if len(pending) > 0 {
		if exhausted && scope.IsExecutable(ctx) {
			j.batches.Run(ctx, scope.Thread, pending)
		} else {
			abortPending(scope, pending)
		}
	}
	scope.Log.Debugf("loop over %s finished after %d rows", j.source.Name(), rows)
	return nil
}

// checkColumns verifies that every column names a variable of the loop body
// and warns once about columns replacing externally supplied values.
func (j *LoopJob) checkColumns(scope *core.Scope, env core.Variables, row core.Row) error {
	body := core.MergeForChild(env, j.child.Executable.Variables())
	var shadowed []string
	for i := 0; i < row.Len(); i++ {
		name := row.Name(i)
		if !body.Has(name) {
			return exception.NewRuntimeError(j.locator.Name(),
				"Source contains column %s that does not have a corresponding variable.", name)
		}
		if scope.Env.External.Has(name) {
			shadowed = append(shadowed, name)
		}
	}
	if len(shadowed) > 0 {
		scope.Warnf("variables %s are set externally and are overwritten by the loop over %s",
			strings.Join(shadowed, ", "), j.source.Name())
	}
	return nil
}

func bind(env core.Variables, row core.Row) core.Variables {
	vars := env.Clone()
	for i := 0; i < row.Len(); i++ {
		vars[row.Name(i)] = row.Value(i)
	}
	return vars
}
