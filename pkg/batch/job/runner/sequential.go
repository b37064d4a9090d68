package runner

import (
	"context"

	"etlflow/pkg/batch/job/core"
)

// SequentialJob runs its children one after another.
type SequentialJob struct {
	node
	children []core.Child
}

var _ core.Executable = (*SequentialJob)(nil)

// NewSequentialJob builds a sequential job. Parallel job children are rejected.
func NewSequentialJob(locator core.Locator, vars core.Variables, children []core.Child, executor core.Executor) (*SequentialJob, error) {
	if err := checkChildren(locator, false, children); err != nil {
		return nil, err
	}
	return &SequentialJob{node: newNode(locator, vars, executor), children: children}, nil
}

func (j *SequentialJob) IsParallel() bool { return false }

func (j *SequentialJob) Children() []core.Child { return j.children }

// Execute creates an execution for every job child up front, then walks the
// children in order until one fails fast or the scope stops. Executions that
// never ran are aborted.
func (j *SequentialJob) Execute(ctx context.Context, scope *core.Scope) error {
	env := scope.Variables()
	executions, err := j.prepareChildren(ctx, scope, env, j.children, func(core.Child) core.SyncMode { return core.SyncSingle })
	if err != nil {
		scope.ReportError(err)
		return nil
	}
	defer abortPending(scope, executions)

	for i, c := range j.children {
		if !scope.IsExecutable(ctx) {
			scope.Log.Debugf("stopping before %s", c.Executable.Locator())
			break
		}
		if c.Kind == core.LoadNode {
			runLoad(ctx, scope, c.Executable, env)
			continue
		}
		if runSingle(ctx, scope, executions[i]) == stepStop {
			break
		}
	}
	return nil
}
