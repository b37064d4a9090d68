package listener_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/execution"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/listener"
	"etlflow/pkg/batch/load"
	"etlflow/pkg/batch/repository"
	"etlflow/pkg/batch/util/logger"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logger.SetFormat("json")
	logger.SetOutput(buf)
	logger.SetLogLevel("DEBUG")
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetFormat("console")
		logger.SetLogLevel("INFO")
	})
	return buf
}

func newExecutor(t *testing.T, listeners ...core.ExecutionListener) *execution.SimpleExecutor {
	t.Helper()
	reg := execution.NewRegistry()
	for name, fn := range map[string]func(context.Context, *core.Scope) error{
		"ok":   func(context.Context, *core.Scope) error { return nil },
		"warn": func(_ context.Context, s *core.Scope) error {
			s.Warnf("late input")
			return nil
		},
		"fail": func(context.Context, *core.Scope) error { return errors.New("disk full") },
	} {
		require.NoError(t, reg.Register(load.NewFunc(name, nil, fn)))
	}
	x := execution.NewExecutor(reg, repository.NewMemoryStateRepository(), true)
	for _, l := range listeners {
		x.AddListener(l)
	}
	return x
}

func runAll(t *testing.T, x *execution.SimpleExecutor, names ...string) {
	t.Helper()
	for _, name := range names {
		e, err := x.CreateExecution(context.Background(), core.ExecutionRequest{Locator: core.NewLocator(core.KindLoads, name)})
		require.NoError(t, err)
		e.Execute(context.Background(), "main")
	}
}

func TestLoggingListener(t *testing.T) {
	buf := capture(t)
	x := newExecutor(t, listener.NewLoggingListener())

	runAll(t, x, "ok", "warn", "fail")

	out := buf.String()
	assert.Contains(t, out, "loads.ok started on thread main")
	assert.Contains(t, out, "loads.ok completed in")
	assert.Contains(t, out, "loads.warn ended as Completed with Warnings")
	assert.Contains(t, out, "loads.fail ended as Failed")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, `"execution":`)
}

func TestStatsListener(t *testing.T) {
	stats := listener.NewStatsListener()
	x := newExecutor(t, stats)

	runAll(t, x, "ok", "ok", "warn", "fail")

	assert.Equal(t, map[core.Status]int{
		core.StatusOK:       2,
		core.StatusWarnings: 1,
		core.StatusFailed:   1,
	}, stats.Finished())
	assert.Equal(t, 1, stats.PeakRunning())
}

func TestStatsListener_SkipsAbortedExecutions(t *testing.T) {
	stats := listener.NewStatsListener()
	x := newExecutor(t, stats)

	e, err := x.CreateExecution(context.Background(), core.ExecutionRequest{Locator: "loads.ok"})
	require.NoError(t, err)
	require.NoError(t, e.Abort())

	assert.Empty(t, stats.Finished())
}

func TestStatsListener_PeakOfParallelBatch(t *testing.T) {
	stats := listener.NewStatsListener()
	reg := execution.NewRegistry()
	release := make(chan struct{})
	started := make(chan struct{}, 3)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Register(load.NewFunc(name, nil, func(context.Context, *core.Scope) error {
			started <- struct{}{}
			<-release
			return nil
		})))
	}
	x := execution.NewExecutor(reg, repository.NewMemoryStateRepository(), true)
	x.AddListener(stats)

	var batch []core.Execution
	for _, name := range []string{"a", "b", "c"} {
		e, err := x.CreateExecution(context.Background(), core.ExecutionRequest{
			Locator: core.NewLocator(core.KindLoads, name),
			Mode:    core.SyncParallel,
		})
		require.NoError(t, err)
		batch = append(batch, e)
	}

	done := make(chan struct{})
	go func() {
		execution.NewParallelBatchRunner(0).Run(context.Background(), "main", batch)
		close(done)
	}()
	for i := 0; i < 3; i++ {
		<-started
	}
	close(release)
	<-done

	assert.Equal(t, 3, stats.PeakRunning())
	assert.Equal(t, 3, stats.Finished()[core.StatusOK])
}
