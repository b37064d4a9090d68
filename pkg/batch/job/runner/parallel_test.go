package runner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/runner"
)

func TestParallelJob_GroupsConsecutiveParallelChildren(t *testing.T) {
	h := newHarness(t)
	a, b, c := h.job("a", nil), h.job("b", nil), h.job("c", nil)
	d, e, f := h.job("d", nil), h.job("e", nil), h.job("f", nil)
	h.register(t, a, b, c, d, e, f)

	par, err := runner.NewParallelJob(core.NewLocator(core.KindJobs, "par"), nil, []core.Child{
		core.JobChild(a, true), core.JobChild(b, true),
		core.JobChild(c, false),
		core.JobChild(d, true), core.JobChild(e, true), core.JobChild(f, true),
	}, h.executor, h.batches)
	require.NoError(t, err)
	assert.True(t, par.IsParallel())

	state := run(t, par, nil, true)

	assert.Equal(t, core.StatusOK, state.Status)
	assert.Equal(t, []int{2, 3}, h.batches.batchSizes())
	assert.Equal(t, 6, h.executor.phases()[core.PhaseFinished])

	events := h.log.all()
	require.Len(t, events, 12)
	for _, ev := range events[:6] {
		assert.Contains(t, ev, "create ")
	}
	assert.Equal(t, "run jobs.c", events[8])
}

func TestParallelJob_BatchMembersSeeParallelMode(t *testing.T) {
	h := newHarness(t)
	a, b := h.job("a", nil), h.job("b", nil)
	l := h.load("l", nil)
	h.register(t, a, b, l)

	par, err := runner.NewParallelJob(core.NewLocator(core.KindJobs, "par"), nil, []core.Child{
		core.JobChild(a, true), core.LoadChild(l, true), core.JobChild(b, false),
	}, h.executor, h.batches)
	require.NoError(t, err)

	run(t, par, nil, true)

	assert.Equal(t, []int{2}, h.batches.batchSizes())
	require.Len(t, a.runs(), 1)
	require.Len(t, l.runs(), 1)
	require.Len(t, b.runs(), 1)
	assert.Equal(t, string(core.SyncParallel), a.runs()[0][core.ParamSyncMode])
	assert.Equal(t, string(core.SyncParallel), l.runs()[0][core.ParamSyncMode])
	assert.Equal(t, string(core.SyncSingle), b.runs()[0][core.ParamSyncMode])
}

func TestParallelJob_FailedBatchStopsRemainingChildren(t *testing.T) {
	h := newHarness(t)
	a, b, c := h.job("a", nil), h.job("b", nil), h.job("c", nil)
	b.fn = failing
	h.register(t, a, b, c)

	par, err := runner.NewParallelJob(core.NewLocator(core.KindJobs, "par"), nil, []core.Child{
		core.JobChild(a, true), core.JobChild(b, true), core.JobChild(c, false),
	}, h.executor, h.batches)
	require.NoError(t, err)

	state := run(t, par, nil, true)

	assert.Equal(t, 1, h.log.count("run jobs.a"))
	assert.Equal(t, 0, h.log.count("run jobs.c"))
	assert.Equal(t, 1, h.executor.phases()[core.PhaseAborted])
	assert.Equal(t, 1, state.Errors)
}

func TestParallelJob_FailedSingleChildStopsBatchAfterIt(t *testing.T) {
	h := newHarness(t)
	a, b, c := h.job("a", nil), h.job("b", nil), h.job("c", nil)
	a.fn = failing
	h.register(t, a, b, c)

	par, err := runner.NewParallelJob(core.NewLocator(core.KindJobs, "par"), nil, []core.Child{
		core.JobChild(a, false), core.JobChild(b, true), core.JobChild(c, true),
	}, h.executor, h.batches)
	require.NoError(t, err)

	run(t, par, nil, true)

	assert.Empty(t, h.batches.batchSizes())
	assert.Equal(t, 2, h.executor.phases()[core.PhaseAborted])
}
