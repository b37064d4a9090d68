package runner

import (
	"context"

	"etlflow/pkg/batch/job/core"
)

// ParallelJob runs its children in order, except that each maximal run of
// consecutive parallel-flagged children is launched as one concurrent batch.
type ParallelJob struct {
	node
	children []core.Child
	batches  core.BatchRunner
}

var _ core.Executable = (*ParallelJob)(nil)

func NewParallelJob(locator core.Locator, vars core.Variables, children []core.Child, executor core.Executor, batches core.BatchRunner) (*ParallelJob, error) {
	if err := checkChildren(locator, true, children); err != nil {
		return nil, err
	}
	return &ParallelJob{node: newNode(locator, vars, executor), children: children, batches: batches}, nil
}

func (j *ParallelJob) IsParallel() bool { return true }

func (j *ParallelJob) Children() []core.Child { return j.children }

// segment is a half-open range of children run together.
type segment struct {
	from, to int
	parallel bool
}

// segments splits the children into parallel batches and single children.
func segments(children []core.Child) []segment {
	var out []segment
	for i := 0; i < len(children); {
		if !children[i].Parallel {
			out = append(out, segment{from: i, to: i + 1})
			i++
			continue
		}
		j := i
		for j < len(children) && children[j].Parallel {
			j++
		}
		out = append(out, segment{from: i, to: j, parallel: true})
		i = j
	}
	return out
}

func modeOf(c core.Child) core.SyncMode {
	if c.Parallel {
		return core.SyncParallel
	}
	return core.SyncSingle
}

func (j *ParallelJob) Execute(ctx context.Context, scope *core.Scope) error {
	env := scope.Variables()
	executions, err := j.prepareChildren(ctx, scope, env, j.children, modeOf)
	if err != nil {
		scope.ReportError(err)
		return nil
	}
	defer abortPending(scope, executions)

	for _, seg := range segments(j.children) {
		if !scope.IsExecutable(ctx) {
			break
		}
		if seg.parallel {
			batch := executions[seg.from:seg.to]
			j.batches.Run(ctx, scope.Thread, batch)
			if anyStops(batch) {
				scope.Log.Infof("a member of the batch failed, skipping remaining children")
				break
			}
			continue
		}
		c := j.children[seg.from]
		if c.Kind == core.LoadNode {
			runLoad(ctx, scope, c.Executable, env)
			continue
		}
		if runSingle(ctx, scope, executions[seg.from]) == stepStop {
			break
		}
	}
	return nil
}

func anyStops(batch []core.Execution) bool {
	for _, e := range batch {
		if shouldStop(e) {
			return true
		}
	}
	return false
}
