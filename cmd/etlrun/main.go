package main

import (
	"fmt"
	"os"
)

const appName = "etlrun"

func main() {
	rootCmd.AddCommand(runCmd, validateCmd, migrateCmd, statusCmd, historyCmd, jobsCmd)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(exitCodeOf(err))
	}
}
