// Package incrementer generates launch variables that change on every run
// of a job.
package incrementer

import (
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/util/exception"
)

// Incrementer derives the variables of a new run from the requested ones
// and those of the job's previous run, which may be nil.
type Incrementer interface {
	Next(vars, previous core.Variables) core.Variables
}

// FromDefinition returns the incrementer a job definition asks for, or nil.
func FromDefinition(def *jsl.Incrementer) (Incrementer, error) {
	if def == nil {
		return nil, nil
	}
	switch def.Type {
	case jsl.IncrementRunID:
		return NewRunIDIncrementer(def.Name), nil
	case jsl.IncrementTimestamp:
		return NewTimestampIncrementer(def.Name), nil
	default:
		return nil, exception.NewConfigurationError("incrementer", "unknown incrementer '%s'", def.Type)
	}
}
