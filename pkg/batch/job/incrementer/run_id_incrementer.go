package incrementer

import (
	"fmt"
	"strconv"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/logger"
)

// RunIDIncrementer sets a variable to the previous run's value plus one,
// starting at 1.
type RunIDIncrementer struct {
	name string
}

var _ Incrementer = (*RunIDIncrementer)(nil)

func NewRunIDIncrementer(name string) *RunIDIncrementer {
	return &RunIDIncrementer{name: name}
}

func (i *RunIDIncrementer) Next(vars, previous core.Variables) core.Variables {
	next := 1
	if v, ok := previous[i.name]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warnf("previous %s '%s' is not a number, starting again at 1", i.name, v)
		} else {
			next = n + 1
		}
	}
	logger.Debugf("%s set to %d", i.name, next)
	return vars.With(i.name, strconv.Itoa(next))
}

func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}
