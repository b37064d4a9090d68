package joblauncher

import (
	"context"
	"sort"
	"sync"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/factory"
	"etlflow/pkg/batch/job/incrementer"
	"etlflow/pkg/batch/repository"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// MainThread labels the goroutine running a launched job.
const MainThread = "main"

// SimpleJobLauncher runs jobs on the caller's goroutine and keeps the cancel
// functions of running executions so that they can be stopped.
type SimpleJobLauncher struct {
	jobFactory *factory.JobFactory
	executor   core.Executor
	repo       repository.StateRepository

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

func NewSimpleJobLauncher(jobFactory *factory.JobFactory, executor core.Executor, repo repository.StateRepository) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobFactory: jobFactory,
		executor:   executor,
		repo:       repo,
		active:     make(map[string]context.CancelFunc),
	}
}

func (l *SimpleJobLauncher) register(id string, cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active[id] = cancel
}

func (l *SimpleJobLauncher) unregister(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancel, ok := l.active[id]; ok {
		cancel()
		delete(l.active, id)
	}
}

// Running returns the ids of the executions currently running.
func (l *SimpleJobLauncher) Running() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.active))
	for id := range l.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, vars core.Variables) (core.Execution, error) {
	logger.Infof("launching job %s", jobName)

	job, err := l.jobFactory.CreateJob(jobName)
	if err != nil {
		return nil, exception.NewInitializationError("job_launcher", "cannot create job %s", jobName, err)
	}

	vars, err = l.increment(ctx, jobName, job.Locator(), vars)
	if err != nil {
		return nil, err
	}

	e, err := l.executor.CreateExecution(ctx, core.ExecutionRequest{
		Locator: job.Locator(),
		Env:     vars,
		Mode:    core.SyncSingle,
	})
	if err != nil {
		return nil, exception.NewInitializationError("job_launcher", "cannot create execution of job %s", jobName, err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.register(e.ID(), cancel)
	defer l.unregister(e.ID())

	logger.Infof("job %s started as execution %s", jobName, e.ID())
	e.Execute(jobCtx, MainThread)

	s := e.State()
	logger.Infof("job %s (execution %s) finished with status %s: %d errors, %d warnings",
		jobName, e.ID(), s.Status, s.Errors, s.Warnings)
	if s.FirstError != "" {
		logger.Infof("first error of execution %s: %s", e.ID(), s.FirstError)
	}
	return e, nil
}

// increment applies the job's incrementer with the variables of the job's
// latest top-level run.
func (l *SimpleJobLauncher) increment(ctx context.Context, jobName string, loc core.Locator, vars core.Variables) (core.Variables, error) {
	def := l.jobFactory.Definitions().Jobs[jobName]
	inc, err := incrementer.FromDefinition(def.Incrementer)
	if err != nil || inc == nil {
		return vars, err
	}
	var previous core.Variables
	records, err := l.repo.FindByLocator(ctx, loc)
	if err != nil {
		return nil, exception.NewInitializationError("job_launcher", "cannot read previous runs of job %s", jobName, err)
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ParentID == "" {
			previous = records[i].Variables
			break
		}
	}
	return inc.Next(vars, previous), nil
}

// Stop cancels a running execution. Its children stop starting new work and
// the execution ends as stopped.
func (l *SimpleJobLauncher) Stop(executionID string) error {
	l.mu.Lock()
	cancel, ok := l.active[executionID]
	l.mu.Unlock()
	if !ok {
		return exception.NewRuntimeError("job_launcher", "execution %s is not running", executionID)
	}
	logger.Infof("stopping execution %s", executionID)
	cancel()
	return nil
}
