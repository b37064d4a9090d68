package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// finished is a core.Execution that has already ended in a fixed state.
type finished struct {
	state core.StateSnapshot
}

func (f finished) ID() string                      { return f.state.ID }
func (f finished) Locator() core.Locator           { return f.state.Locator }
func (f finished) Execute(context.Context, string) {}
func (f finished) Abort() error                    { return nil }
func (f finished) State() core.StateSnapshot       { return f.state }
func (f finished) FailOnError() bool               { return f.state.FailOnError }
func (f finished) Phase() core.Phase               { return core.PhaseFinished }

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"A=1", " B =x=y", "C=", core.ParamFailOnError + "=false"})
	require.NoError(t, err)
	assert.Equal(t, core.Variables{"A": "1", "B": "x=y", "C": "", core.ParamFailOnError: "false"}, vars)

	for _, bad := range []string{"A", "=1", core.ParamSyncMode + "=PARALLEL"} {
		_, err := parseVars([]string{bad})
		assert.True(t, exception.IsConfiguration(err), bad)
	}
}

func TestRunJob_ExitCodes(t *testing.T) {
	tests := []struct {
		status core.Status
		want   int
	}{
		{core.StatusOK, exitOK},
		{core.StatusWarnings, exitOK},
		{core.StatusErrors, exitErrors},
		{core.StatusFailed, exitFailed},
		{core.StatusStopped, exitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			var gotVars core.Variables
			start := func(_ context.Context, job string, vars core.Variables) (core.Execution, error) {
				gotVars = vars
				return finished{state: core.StateSnapshot{ID: "e1", Locator: core.NewLocator(core.KindJobs, job), Status: tt.status}}, nil
			}

			err := runJob(context.Background(), start, "nightly", core.Variables{"A": "1"})

			assert.Equal(t, core.Variables{"A": "1"}, gotVars)
			if tt.want == exitOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, exitCodeOf(err))
		})
	}
}

func TestRunJob_StartFailure(t *testing.T) {
	start := func(context.Context, string, core.Variables) (core.Execution, error) {
		return nil, exception.NewInitializationError("job_launcher", "cannot create job %s", "missing")
	}
	err := runJob(context.Background(), start, "missing", nil)
	require.Error(t, err)
	assert.Equal(t, exitFailed, exitCodeOf(err))
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, exitConfig, exitCodeOf(exception.NewConfigurationError("cli", "bad")))
	assert.Equal(t, exitFailed, exitCodeOf(errors.New("boom")))
	assert.Equal(t, 7, exitCodeOf(&exitError{code: 7, msg: "x"}))
}

func TestLoadEnvFile_MissingFileIsIgnored(t *testing.T) {
	assert.NoError(t, loadEnvFile(t.TempDir()+"/absent.env"))
	assert.NoError(t, loadEnvFile(""))
}
