package incrementer

import (
	"fmt"
	"strconv"
	"time"

	"etlflow/pkg/batch/job/core"
)

// TimestampIncrementer sets a variable to the launch time in Unix milliseconds.
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

var _ Incrementer = (*TimestampIncrementer)(nil)

func NewTimestampIncrementer(name string) *TimestampIncrementer {
	return &TimestampIncrementer{name: name, now: time.Now}
}

func (i *TimestampIncrementer) Next(vars, _ core.Variables) core.Variables {
	return vars.With(i.name, strconv.FormatInt(i.now().UnixMilli(), 10))
}

func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}
