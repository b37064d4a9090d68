package joboperator

import (
	"context"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/repository"
)

// JobOperator starts and stops jobs and answers questions about past runs.
type JobOperator interface {
	// Start runs a job to completion; see joblauncher.JobLauncher.
	Start(ctx context.Context, jobName string, vars core.Variables) (core.Execution, error)
	Stop(ctx context.Context, executionID string) error
	GetExecution(ctx context.Context, executionID string) (*repository.StateRecord, error)
	// GetExecutions returns the top-level runs of a job, oldest first.
	GetExecutions(ctx context.Context, jobName string) ([]repository.StateRecord, error)
	// GetChildExecutions returns the executions created on behalf of an execution.
	GetChildExecutions(ctx context.Context, executionID string) ([]repository.StateRecord, error)
	GetJobNames(ctx context.Context) ([]string, error)
}
