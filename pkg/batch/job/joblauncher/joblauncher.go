package joblauncher

import (
	"context"

	"etlflow/pkg/batch/job/core"
)

// JobLauncher starts top-level executions of configured jobs.
type JobLauncher interface {
	// Launch runs the named job with vars as its external environment and
	// returns the finished execution. The returned error reports launch
	// failures only; the outcome of the run is in the execution's state.
	Launch(ctx context.Context, jobName string, vars core.Variables) (core.Execution, error)
	// Stop cancels a running execution.
	Stop(executionID string) error
}
