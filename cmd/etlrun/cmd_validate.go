package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/util/exception"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the job definitions without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadDefinitions()
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d jobs, %d loads, %d sources\n", len(defs.Jobs), len(defs.Loads), len(defs.Sources))
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the defined jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadDefinitions()
		if err != nil {
			return err
		}
		w := newTable()
		fmt.Fprintln(w, "JOB\tTYPE\tDESCRIPTION")
		for _, name := range defs.JobNames() {
			j := defs.Jobs[name]
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, j.Type, j.Description)
		}
		return w.Flush()
	},
}

func loadDefinitions() (*jsl.Definitions, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Batch.DefinitionsPath == "" {
		return nil, exception.NewConfigurationError("cli", "no job definitions given; use --jobs or batch.definitions_path")
	}
	return jsl.LoadFromPath(cfg.Batch.DefinitionsPath)
}
