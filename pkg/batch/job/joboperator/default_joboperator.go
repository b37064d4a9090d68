package joboperator

import (
	"context"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/job/joblauncher"
	"etlflow/pkg/batch/repository"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// DefaultJobOperator combines a launcher with the state repository.
type DefaultJobOperator struct {
	launcher joblauncher.JobLauncher
	repo     repository.StateRepository
	defs     *jsl.Definitions
}

var _ JobOperator = (*DefaultJobOperator)(nil)

func NewDefaultJobOperator(launcher joblauncher.JobLauncher, repo repository.StateRepository, defs *jsl.Definitions) *DefaultJobOperator {
	return &DefaultJobOperator{launcher: launcher, repo: repo, defs: defs}
}

func (o *DefaultJobOperator) Start(ctx context.Context, jobName string, vars core.Variables) (core.Execution, error) {
	if _, ok := o.defs.Jobs[jobName]; !ok {
		return nil, exception.NewConfigurationError("job_operator", "job %s is not defined", jobName)
	}
	return o.launcher.Launch(ctx, jobName, vars)
}

func (o *DefaultJobOperator) Stop(_ context.Context, executionID string) error {
	return o.launcher.Stop(executionID)
}

func (o *DefaultJobOperator) GetExecution(ctx context.Context, executionID string) (*repository.StateRecord, error) {
	rec, err := o.repo.FindByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewRuntimeError("job_operator", "cannot load execution %s", executionID, err)
	}
	return rec, nil
}

func (o *DefaultJobOperator) GetExecutions(ctx context.Context, jobName string) ([]repository.StateRecord, error) {
	records, err := o.repo.FindByLocator(ctx, core.NewLocator(core.KindJobs, jobName))
	if err != nil {
		return nil, exception.NewRuntimeError("job_operator", "cannot load executions of job %s", jobName, err)
	}
	var top []repository.StateRecord
	for _, r := range records {
		if r.ParentID == "" {
			top = append(top, r)
		}
	}
	logger.Debugf("found %d runs of job %s", len(top), jobName)
	return top, nil
}

func (o *DefaultJobOperator) GetChildExecutions(ctx context.Context, executionID string) ([]repository.StateRecord, error) {
	records, err := o.repo.FindChildren(ctx, executionID)
	if err != nil {
		return nil, exception.NewRuntimeError("job_operator", "cannot load children of execution %s", executionID, err)
	}
	return records, nil
}

func (o *DefaultJobOperator) GetJobNames(context.Context) ([]string, error) {
	return o.defs.JobNames(), nil
}
