package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

var flagVars []string

var runCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "Run a job and wait for it to finish",
	Long: "Run a job and wait for it to finish. Without an argument the job named by\n" +
		"batch.job_name is run. SIGINT and SIGTERM stop the job; children that have not\n" +
		"started yet are not run.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := parseVars(flagVars)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bi, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeQuietly(bi)

		jobName := bi.Config.Batch.JobName
		if len(args) == 1 {
			jobName = args[0]
		}
		if jobName == "" {
			return exception.NewConfigurationError("cli", "no job given and batch.job_name is not set")
		}
		err = runJob(ctx, bi.JobOperator.Start, jobName, vars)
		logger.Debugf("executions by status: %v (at most %d running at once)", bi.Stats.Finished(), bi.Stats.PeakRunning())
		return err
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&flagVars, "var", "v", nil, "job variable as NAME=VALUE (repeatable)")
}

type startFunc func(ctx context.Context, jobName string, vars core.Variables) (core.Execution, error)

// runJob starts the job and turns its final status into the command's result.
func runJob(ctx context.Context, start startFunc, jobName string, vars core.Variables) error {
	e, err := start(ctx, jobName, vars)
	if err != nil {
		return err
	}
	s := e.State()
	fmt.Printf("%s %s: %s (%d errors, %d warnings)\n", e.ID(), jobName, s.Status, s.Errors, s.Warnings)
	if s.FirstError != "" {
		logger.Errorf("first error: %s", s.FirstError)
	}
	if code := exitCodeFor(s.Status); code != 0 {
		return &exitError{code: code, msg: fmt.Sprintf("job %s ended with status %s", jobName, s.Status)}
	}
	return nil
}

// parseVars turns NAME=VALUE pairs into job variables.
func parseVars(pairs []string) (core.Variables, error) {
	vars := core.Variables{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, exception.NewConfigurationError("cli", "invalid variable '%s', expected NAME=VALUE", p)
		}
		if core.IsInternal(name) && name != core.ParamFailOnError {
			return nil, exception.NewConfigurationError("cli", "variable %s is reserved", name)
		}
		vars[name] = value
	}
	return vars, nil
}
