package runner

import (
	"context"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// node carries what every job node has in common.
type node struct {
	locator  core.Locator
	vars     core.Variables
	executor core.Executor
}

func newNode(locator core.Locator, vars core.Variables, executor core.Executor) node {
	return node{locator: locator, vars: vars.Clone(), executor: executor}
}

func (n *node) Locator() core.Locator     { return n.locator }
func (n *node) Variables() core.Variables { return n.vars }

// step tells the walk over a node's children whether to go on.
type step int

const (
	stepContinue step = iota
	stepStop
)

// shouldStop is the fail-fast test applied after an execution finished.
func shouldStop(e core.Execution) bool {
	if !e.FailOnError() {
		return false
	}
	s := e.State()
	return s.Status == core.StatusInvalid || s.Errors > 0
}

// runLoad runs a load inline within the caller's execution.
func runLoad(ctx context.Context, scope *core.Scope, load core.Executable, external core.Variables) {
	ls := scope.Derive(load.Locator(), core.Environment{External: external, Own: load.Variables()})
	if err := load.Execute(ctx, ls); err != nil {
		ls.ReportError(err)
	}
}

// runSingle runs a created execution on the caller's goroutine.
func runSingle(ctx context.Context, scope *core.Scope, e core.Execution) step {
	e.Execute(ctx, scope.Thread)
	if shouldStop(e) {
		scope.Log.Infof("%s failed, skipping remaining children", e.Locator())
		return stepStop
	}
	return stepContinue
}

func (n *node) create(ctx context.Context, scope *core.Scope, target core.Executable, env core.Variables, mode core.SyncMode) (core.Execution, error) {
	e, err := n.executor.CreateExecution(ctx, core.ExecutionRequest{
		Locator: target.Locator(),
		Env:     env,
		Mode:    mode,
		Shared:  scope.State,
	})
	if err != nil {
		return nil, exception.NewRuntimeError(n.locator.Name(), "cannot create execution of %s", target.Locator(), err)
	}
	return e, nil
}

// prepareChildren creates one execution per job child, indexed like the children.
// Load children get a nil entry unless mode asks for a parallel execution.
func (n *node) prepareChildren(ctx context.Context, scope *core.Scope, env core.Variables, children []core.Child, mode func(core.Child) core.SyncMode) ([]core.Execution, error) {
	executions := make([]core.Execution, len(children))
	for i, c := range children {
		m := mode(c)
		if c.Kind == core.LoadNode && m != core.SyncParallel {
			continue
		}
		e, err := n.create(ctx, scope, c.Executable, env, m)
		if err != nil {
			abortPending(scope, executions)
			return nil, err
		}
		executions[i] = e
	}
	return executions, nil
}

// abortPending releases every execution that was created but never run.
// Abort failures are logged and otherwise ignored.
func abortPending(scope *core.Scope, executions []core.Execution) {
	for _, e := range executions {
		if e == nil || e.Phase() != core.PhaseCreated {
			continue
		}
		if err := e.Abort(); err != nil {
			scope.Log.Errorf("%v", err)
		}
	}
}

// checkChildren enforces that parallel job children only appear in parallel containers.
func checkChildren(container core.Locator, parallel bool, children []core.Child) error {
	for _, c := range children {
		if c.Executable == nil {
			return exception.NewConfigurationError(container.Name(), "%s has an empty child", container)
		}
		if c.Parallel && c.Kind == core.JobNode && !parallel {
			return exception.NewConfigurationError(container.Name(),
				"%s is marked parallel but its container %s does not run children in parallel", c.Executable.Locator(), container)
		}
	}
	return nil
}
