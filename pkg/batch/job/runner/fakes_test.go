package runner_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/execution"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/repository"
)

// eventLog records what happened during a run, in order.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) count(e string) int {
	n := 0
	for _, got := range l.all() {
		if got == e {
			n++
		}
	}
	return n
}

// fakeExecutable records each run and the variables it saw.
type fakeExecutable struct {
	loc  core.Locator
	vars core.Variables
	log  *eventLog
	fn   func(ctx context.Context, scope *core.Scope) error

	mu   sync.Mutex
	seen []core.Variables
}

func newFake(log *eventLog, kind, name string, vars core.Variables) *fakeExecutable {
	return &fakeExecutable{loc: core.NewLocator(kind, name), vars: vars, log: log}
}

func (f *fakeExecutable) Locator() core.Locator     { return f.loc }
func (f *fakeExecutable) IsParallel() bool          { return false }
func (f *fakeExecutable) Variables() core.Variables { return f.vars }

func (f *fakeExecutable) Execute(ctx context.Context, scope *core.Scope) error {
	f.log.add("run " + f.loc.String())
	f.mu.Lock()
	f.seen = append(f.seen, scope.Variables())
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, scope)
	}
	return nil
}

func (f *fakeExecutable) runs() []core.Variables {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Variables(nil), f.seen...)
}

func failing(ctx context.Context, scope *core.Scope) error {
	return errors.New("boom")
}

func warning(ctx context.Context, scope *core.Scope) error {
	scope.Warnf("careful")
	return nil
}

// recordingExecutor wraps a SimpleExecutor and keeps every execution it created.
type recordingExecutor struct {
	inner *execution.SimpleExecutor
	log   *eventLog

	mu      sync.Mutex
	created []core.Execution
}

func (r *recordingExecutor) CreateExecution(ctx context.Context, req core.ExecutionRequest) (core.Execution, error) {
	e, err := r.inner.CreateExecution(ctx, req)
	if err != nil {
		return nil, err
	}
	r.log.add("create " + req.Locator.String())
	r.mu.Lock()
	r.created = append(r.created, e)
	r.mu.Unlock()
	return e, nil
}

func (r *recordingExecutor) phases() map[core.Phase]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[core.Phase]int{}
	for _, e := range r.created {
		out[e.Phase()]++
	}
	return out
}

// recordingBatches delegates to a ParallelBatchRunner and records batch sizes.
type recordingBatches struct {
	inner *execution.ParallelBatchRunner
	mu    sync.Mutex
	sizes []int
}

func (b *recordingBatches) Run(ctx context.Context, thread string, executions []core.Execution) {
	b.mu.Lock()
	b.sizes = append(b.sizes, len(executions))
	b.mu.Unlock()
	b.inner.Run(ctx, thread, executions)
}

func (b *recordingBatches) batchSizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.sizes...)
}

type harness struct {
	log      *eventLog
	registry *execution.Registry
	executor *recordingExecutor
	batches  *recordingBatches
	repo     *repository.MemoryStateRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := &eventLog{}
	reg := execution.NewRegistry()
	repo := repository.NewMemoryStateRepository()
	return &harness{
		log:      log,
		registry: reg,
		executor: &recordingExecutor{inner: execution.NewExecutor(reg, repo, true), log: log},
		batches:  &recordingBatches{inner: execution.NewParallelBatchRunner(0)},
		repo:     repo,
	}
}

func (h *harness) register(t *testing.T, exes ...core.Executable) {
	t.Helper()
	for _, e := range exes {
		require.NoError(t, h.registry.Register(e))
	}
}

func (h *harness) job(name string, vars core.Variables) *fakeExecutable {
	return newFake(h.log, core.KindJobs, name, vars)
}

func (h *harness) load(name string, vars core.Variables) *fakeExecutable {
	return newFake(h.log, core.KindLoads, name, vars)
}

// run executes exe directly in a fresh scope with the given fail-on-error
// setting and returns the scope's final state.
func run(t *testing.T, exe core.Executable, external core.Variables, failOnError bool) core.StateSnapshot {
	t.Helper()
	return runCtx(context.Background(), t, exe, external, failOnError)
}

func runCtx(ctx context.Context, t *testing.T, exe core.Executable, external core.Variables, failOnError bool) core.StateSnapshot {
	t.Helper()
	state := core.NewExecutionState("test", exe.Locator(), failOnError)
	state.Open()
	scope := core.NewScope(exe.Locator(), core.Environment{External: external, Own: exe.Variables()}, state, nil, "main")
	if err := exe.Execute(ctx, scope); err != nil {
		scope.ReportError(err)
	}
	state.Close()
	return state.Snapshot()
}

// sliceSource serves fixed rows.
type sliceSource struct {
	name    string
	columns []string
	rows    [][]string

	mu     sync.Mutex
	closed int
}

func (s *sliceSource) Name() string { return s.name }

func (s *sliceSource) Open(context.Context) (core.Cursor, error) {
	return &sliceCursor{src: s}, nil
}

func (s *sliceSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type sliceCursor struct {
	src *sliceSource
	pos int
}

func (c *sliceCursor) Next(context.Context) (core.Row, error) {
	if c.pos >= len(c.src.rows) {
		return nil, io.EOF
	}
	r := core.Record{Names: c.src.columns, Values: c.src.rows[c.pos]}
	c.pos++
	return r, nil
}

func (c *sliceCursor) Close() error {
	c.src.mu.Lock()
	defer c.src.mu.Unlock()
	c.src.closed++
	return nil
}

// evalFunc adapts a function to core.ConditionEvaluator.
type evalFunc func(string) (bool, error)

func (f evalFunc) Evaluate(v string) (bool, error) { return f(v) }

func equals(want string) core.ConditionEvaluator {
	return evalFunc(func(v string) (bool, error) { return v == want, nil })
}
