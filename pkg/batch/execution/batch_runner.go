package execution

import (
	"context"
	"fmt"
	"sync"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/logger"
)

// ParallelBatchRunner runs every member of a batch on its own goroutine and
// waits for all of them. MaxConcurrency bounds how many members run at the
// same time; 0 means no bound.
type ParallelBatchRunner struct {
	MaxConcurrency int
}

var _ core.BatchRunner = (*ParallelBatchRunner)(nil)

func NewParallelBatchRunner(maxConcurrency int) *ParallelBatchRunner {
	return &ParallelBatchRunner{MaxConcurrency: maxConcurrency}
}

// Run returns once every execution has terminated, whatever the outcome.
// Executions not yet started when ctx is cancelled are aborted.
func (r *ParallelBatchRunner) Run(ctx context.Context, thread string, executions []core.Execution) {
	if len(executions) == 0 {
		return
	}
	logger.Debugf("%s: running batch of %d executions", thread, len(executions))

	var slots chan struct{}
	if r.MaxConcurrency > 0 {
		slots = make(chan struct{}, r.MaxConcurrency)
	}

	var wg sync.WaitGroup
	for i, e := range executions {
		wg.Add(1)
		go func(n int, e core.Execution) {
			defer wg.Done()
			if slots != nil {
				select {
				case slots <- struct{}{}:
					defer func() { <-slots }()
				case <-ctx.Done():
				}
			}
			if ctx.Err() != nil {
				if err := e.Abort(); err != nil {
					logger.Errorf("%s: %v", thread, err)
				}
				return
			}
			e.Execute(ctx, fmt.Sprintf("%s-par-%d", thread, n))
		}(i+1, e)
	}
	wg.Wait()
	logger.Debugf("%s: batch of %d executions completed", thread, len(executions))
}
