package execution

import (
	"context"
	"fmt"
	"sync"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/repository"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

type execution struct {
	mu         sync.Mutex
	phase      core.Phase
	thread     string
	parentID   string
	executable core.Executable
	env        core.Environment
	state      *core.ExecutionState
	shared     *core.ExecutionState
	mode       core.SyncMode
	repo       repository.StateRepository
	listeners  []core.ExecutionListener
}

var _ core.Execution = (*execution)(nil)

func (e *execution) ID() string                { return e.state.ID() }
func (e *execution) Locator() core.Locator     { return e.executable.Locator() }
func (e *execution) State() core.StateSnapshot { return e.state.Snapshot() }
func (e *execution) FailOnError() bool         { return e.state.Snapshot().FailOnError }

func (e *execution) Phase() core.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *execution) record() repository.StateRecord {
	return repository.StateRecord{
		StateSnapshot: e.state.Snapshot(),
		ParentID:      e.parentID,
		Thread:        e.thread,
		SyncMode:      e.mode,
		Variables:     e.env.Resolved(),
	}
}

func (e *execution) persist(ctx context.Context) {
	if err := e.repo.Update(context.WithoutCancel(ctx), e.record()); err != nil {
		logger.Errorf("failed to persist state of execution %s: %v", e.ID(), err)
	}
}

// Execute runs the executable once. Calls on an execution that is not in
// the created phase are ignored.
func (e *execution) Execute(ctx context.Context, thread string) {
	e.mu.Lock()
	if e.phase != core.PhaseCreated {
		phase := e.phase
		e.mu.Unlock()
		logger.Debugf("execution %s of %s is %s, not running it again", e.ID(), e.Locator(), phase)
		return
	}
	e.phase = core.PhaseRunning
	e.thread = thread
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.phase = core.PhaseFinished
		e.mu.Unlock()
	}()

	e.state.Open()
	e.persist(ctx)
	for _, l := range e.listeners {
		l.BeforeExecution(ctx, e.state.Snapshot(), thread)
	}

	if v, ok := e.executable.(core.Validator); ok {
		if err := v.Validate(); err != nil {
			logger.Errorf("%s is invalid: %v", e.Locator(), err)
			e.state.Invalidate(err.Error())
			e.finish(ctx)
			return
		}
	}

	if ctx.Err() != nil {
		e.state.Stop()
		e.finish(ctx)
		return
	}

	scope := core.NewScope(e.Locator(), e.env, e.state, e.shared, thread)
	scope.Log.Debugf("execution %s started", e.ID())
	if err := e.run(ctx, scope); err != nil {
		scope.ReportError(err)
	}

	if ctx.Err() != nil {
		e.state.Stop()
	} else {
		e.state.Close()
	}
	e.finish(ctx)
	snap := e.state.Snapshot()
	scope.Log.Debugf("execution %s finished: %s (errors %d, warnings %d)", e.ID(), snap.Status, snap.Errors, snap.Warnings)
}

func (e *execution) run(ctx context.Context, scope *core.Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = exception.NewRuntimeError("executor", "%s panicked: %v", e.Locator(), r)
		}
	}()
	return e.executable.Execute(ctx, scope)
}

func (e *execution) finish(ctx context.Context) {
	snap := e.state.Snapshot()
	e.shared.AddCounts(snap.Errors, snap.Warnings)
	e.persist(ctx)
	for _, l := range e.listeners {
		l.AfterExecution(ctx, snap)
	}
}

// Abort releases a created execution without running it.
func (e *execution) Abort() error {
	e.mu.Lock()
	switch e.phase {
	case core.PhaseAborted:
		e.mu.Unlock()
		return nil
	case core.PhaseCreated:
		e.phase = core.PhaseAborted
		e.mu.Unlock()
	default:
		phase := e.phase
		e.mu.Unlock()
		return exception.NewRuntimeError("executor", "cannot abort execution %s of %s: it is %s", e.ID(), e.Locator(), phase)
	}
	e.state.Abort()
	e.persist(context.Background())
	logger.Debugf("aborted execution %s of %s", e.ID(), e.Locator())
	return nil
}

func (e *execution) String() string {
	return fmt.Sprintf("execution %s of %s", e.ID(), e.Locator())
}
