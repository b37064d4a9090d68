package main

import (
	"errors"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

const (
	exitOK          = 0
	exitFailed      = 1
	exitErrors      = 2
	exitConfig      = 3
	exitInterrupted = 130
)

// exitError carries the process exit code of a finished job.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// exitCodeFor maps a final job status to the process exit code. Warnings do
// not fail the process.
func exitCodeFor(s core.Status) int {
	switch s {
	case core.StatusOK, core.StatusWarnings:
		return exitOK
	case core.StatusErrors:
		return exitErrors
	case core.StatusStopped:
		return exitInterrupted
	default:
		return exitFailed
	}
}

func exitCodeOf(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if exception.IsConfiguration(err) {
		return exitConfig
	}
	return exitFailed
}
