package core

import (
	"context"
	"fmt"
	"strings"

	"etlflow/pkg/batch/util/logger"
)

// Locator is the hierarchical name of a configured executable, "<kind>.<name>".
type Locator string

const (
	KindJobs  = "jobs"
	KindLoads = "loads"
)

func NewLocator(kind, name string) Locator {
	return Locator(kind + "." + name)
}

// Kind returns the part before the first dot.
func (l Locator) Kind() string {
	kind, _, _ := strings.Cut(string(l), ".")
	return kind
}

// Name returns the part after the first dot.
func (l Locator) Name() string {
	_, name, found := strings.Cut(string(l), ".")
	if !found {
		return string(l)
	}
	return name
}

func (l Locator) String() string { return string(l) }

// Executable is any configured unit that can run: a job node or a load.
type Executable interface {
	Locator() Locator
	// IsParallel reports whether the executable may launch its children in parallel.
	IsParallel() bool
	// Variables returns the defaults declared by the executable itself.
	Variables() Variables
	// Execute runs the executable. Errors that end the run are returned and
	// counted by the owning execution.
	Execute(ctx context.Context, scope *Scope) error
}

// Validator is implemented by executables that can detect a broken
// configuration before running.
type Validator interface {
	Validate() error
}

// Scope binds an executable to one run: its environment, the state it
// reports into and the state of the execution it depends on.
type Scope struct {
	Env    Environment
	State  *ExecutionState
	Shared *ExecutionState
	Thread string
	Log    *logger.Logger
}

// NewScope creates a scope with a logger tagged by locator and thread.
func NewScope(locator Locator, env Environment, state, shared *ExecutionState, thread string) *Scope {
	return &Scope{
		Env:    env,
		State:  state,
		Shared: shared,
		Thread: thread,
		Log:    logger.With("executable", locator.String()).With("thread", thread),
	}
}

// Derive creates a scope for work run inline on behalf of this scope, such as
// a load called by a job node. The derived scope reports into the same state.
func (s *Scope) Derive(locator Locator, env Environment) *Scope {
	return NewScope(locator, env, s.State, s.Shared, s.Thread)
}

// Variables returns the resolved environment.
func (s *Scope) Variables() Variables {
	return s.Env.Resolved()
}

// IsExecutable reports whether new work may still be started in this scope.
func (s *Scope) IsExecutable(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return s.State.IsExecutable() && s.Shared.IsExecutable()
}

// ReportError counts err against the scope's state and logs it.
func (s *Scope) ReportError(err error) {
	s.Log.Errorf("%v", err)
	s.State.AddError(err.Error())
}

// Warnf counts and logs a warning.
func (s *Scope) Warnf(format string, v ...interface{}) {
	s.Log.Warnf(format, v...)
	s.State.AddWarning()
}

// ChildKind tells a job node how to run a child.
type ChildKind int

const (
	// JobNode children run through their own Execution.
	JobNode ChildKind = iota
	// LoadNode children run inline within the caller's execution.
	LoadNode
)

func (k ChildKind) String() string {
	if k == LoadNode {
		return "load"
	}
	return "job"
}

// Child is one entry of a job node's ordered children.
type Child struct {
	Kind       ChildKind
	Executable Executable
	Parallel   bool
}

func JobChild(e Executable, parallel bool) Child {
	return Child{Kind: JobNode, Executable: e, Parallel: parallel}
}

func LoadChild(e Executable, parallel bool) Child {
	return Child{Kind: LoadNode, Executable: e, Parallel: parallel}
}

func (c Child) String() string {
	return fmt.Sprintf("%s(%s)", c.Kind, c.Executable.Locator())
}

// SyncMode tells an Execution whether it runs on its caller's goroutine or
// as a member of a parallel batch.
type SyncMode string

const (
	SyncSingle   SyncMode = "SINGLE"
	SyncParallel SyncMode = "PARALLEL"
)

// Phase is the lifecycle position of an Execution.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseRunning
	PhaseFinished
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return "aborted"
	}
}

// ExecutionRequest describes an Execution to create.
type ExecutionRequest struct {
	Locator Locator
	// Env is the environment inherited from the caller. It is copied on creation.
	Env  Variables
	Mode SyncMode
	// Shared is the state of the execution this one depends on. Error and
	// warning counts are added to it when the execution finishes.
	Shared *ExecutionState
}

// ExecutionListener is notified around every execution that runs. Aborted
// executions never start and are not reported.
type ExecutionListener interface {
	BeforeExecution(ctx context.Context, state StateSnapshot, thread string)
	// AfterExecution is called once the final state has been persisted.
	AfterExecution(ctx context.Context, state StateSnapshot)
}

// Executor creates executions for configured executables.
type Executor interface {
	CreateExecution(ctx context.Context, req ExecutionRequest) (Execution, error)
}

// Execution is a created, runnable instance of an executable.
type Execution interface {
	ID() string
	Locator() Locator
	// Execute runs the execution to completion. It does nothing unless the
	// execution is in the created phase.
	Execute(ctx context.Context, thread string)
	// Abort releases an execution that has not run. Aborting an aborted
	// execution does nothing; aborting a running or finished one fails.
	Abort() error
	State() StateSnapshot
	FailOnError() bool
	Phase() Phase
}

// BatchRunner runs a set of executions concurrently and returns once every
// one of them has terminated.
type BatchRunner interface {
	Run(ctx context.Context, thread string, executions []Execution)
}

// Row is one record produced by a LoopSource. Values are rendered as strings.
type Row interface {
	Len() int
	Name(i int) string
	Value(i int) string
	Lookup(name string) (string, bool)
}

// Cursor iterates the rows of an opened source. Next returns io.EOF after the last row.
type Cursor interface {
	Next(ctx context.Context) (Row, error)
	Close() error
}

// LoopSource is a tabular data source iterated by loops and read by switches.
type LoopSource interface {
	Name() string
	Open(ctx context.Context) (Cursor, error)
}

// ConditionEvaluator decides whether a condition value matches a clause.
type ConditionEvaluator interface {
	Evaluate(value string) (bool, error)
}

// Record is a simple Row backed by parallel name and value slices.
type Record struct {
	Names  []string
	Values []string
}

func (r Record) Len() int           { return len(r.Values) }
func (r Record) Name(i int) string  { return r.Names[i] }
func (r Record) Value(i int) string { return r.Values[i] }

func (r Record) Lookup(name string) (string, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return "", false
}
