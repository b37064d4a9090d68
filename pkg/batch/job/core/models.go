package core

import (
	"strconv"
	"sync"
	"time"
)

// Status is the result status of an execution. The numeric values are the
// result codes persisted with execution states.
type Status int

const (
	StatusQueued   Status = 0
	StatusRunning  Status = 5
	StatusOK       Status = 10
	StatusWarnings Status = 20
	StatusErrors   Status = 30
	StatusFailed   Status = 40
	StatusStopped  Status = 50
	StatusAborted  Status = 60
	StatusInvalid  Status = 70
)

var statusNames = map[Status]string{
	StatusQueued:   "Queued",
	StatusRunning:  "Running",
	StatusOK:       "Completed successfully",
	StatusWarnings: "Completed with Warnings",
	StatusErrors:   "Completed with Errors",
	StatusFailed:   "Failed",
	StatusStopped:  "Stopped",
	StatusAborted:  "Aborted",
	StatusInvalid:  "Invalid",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(s)) + ")"
}

// Code returns the numeric result code as a string.
func (s Status) Code() string {
	return strconv.Itoa(int(s))
}

// IsFinished reports whether s is terminal.
func (s Status) IsFinished() bool {
	return s != StatusQueued && s != StatusRunning
}

// ParseStatus converts a persisted numeric code back to a Status.
func ParseStatus(code int) (Status, bool) {
	s := Status(code)
	_, ok := statusNames[s]
	return s, ok
}

// Canonical condition codes derived from a finished execution.
const (
	CodeOK       = "10"
	CodeWarnings = "20"
	CodeFailed   = "40"
)

// ResultCode maps a finished state to one of the canonical condition codes.
func ResultCode(s StateSnapshot) string {
	switch {
	case s.Errors > 0:
		return CodeFailed
	case s.Warnings > 0:
		return CodeWarnings
	default:
		return CodeOK
	}
}

// StateSnapshot is an immutable copy of an ExecutionState.
type StateSnapshot struct {
	ID          string
	Locator     Locator
	Status      Status
	Errors      int
	Warnings    int
	FirstError  string
	FailOnError bool
	StartTime   time.Time
	StopTime    time.Time
}

// ExecutionState is the mutable result record of one execution. It is
// safe for concurrent use: parallel children report into their parent's
// state while the parent is waiting on them.
type ExecutionState struct {
	mu          sync.Mutex
	id          string
	locator     Locator
	status      Status
	errors      int
	warnings    int
	firstError  string
	failOnError bool
	executable  bool
	start       time.Time
	stop        time.Time
}

func NewExecutionState(id string, locator Locator, failOnError bool) *ExecutionState {
	return &ExecutionState{
		id:          id,
		locator:     locator,
		status:      StatusQueued,
		failOnError: failOnError,
		executable:  true,
	}
}

func (s *ExecutionState) ID() string { return s.id }

// Open marks the state running.
func (s *ExecutionState) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusQueued {
		s.status = StatusRunning
		s.start = time.Now()
	}
}

// AddError records an error raised by the owning execution. With
// failOnError set the execution stops accepting new work.
func (s *ExecutionState) AddError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
	if s.firstError == "" {
		s.firstError = message
	}
	if s.failOnError {
		s.executable = false
	}
}

// AddWarning records a warning.
func (s *ExecutionState) AddWarning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings++
}

// AddCounts aggregates counts reported by a dependent execution. It does not
// change whether this execution may continue.
func (s *ExecutionState) AddCounts(errors, warnings int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors += errors
	s.warnings += warnings
}

// Close computes the final status of a running execution.
func (s *ExecutionState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsFinished() {
		return
	}
	switch {
	case s.errors > 0 && s.failOnError:
		s.status = StatusFailed
	case s.errors > 0:
		s.status = StatusErrors
	case s.warnings > 0:
		s.status = StatusWarnings
	default:
		s.status = StatusOK
	}
	s.stop = time.Now()
}

// Abort marks an execution that never ran, or is being torn down, as aborted.
func (s *ExecutionState) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executable = false
	if !s.status.IsFinished() {
		s.status = StatusAborted
		s.stop = time.Now()
	}
}

// Stop marks the execution as stopped on request.
func (s *ExecutionState) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executable = false
	if !s.status.IsFinished() {
		s.status = StatusStopped
		s.stop = time.Now()
	}
}

// Invalidate marks an execution whose executable failed validation.
func (s *ExecutionState) Invalidate(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executable = false
	s.errors++
	if s.firstError == "" {
		s.firstError = message
	}
	s.status = StatusInvalid
	s.stop = time.Now()
}

// IsExecutable reports whether new work may still be started.
func (s *ExecutionState) IsExecutable() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executable
}

func (s *ExecutionState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		ID:          s.id,
		Locator:     s.locator,
		Status:      s.status,
		Errors:      s.errors,
		Warnings:    s.warnings,
		FirstError:  s.firstError,
		FailOnError: s.failOnError,
		StartTime:   s.start,
		StopTime:    s.stop,
	}
}
