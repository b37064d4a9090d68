package jsl

import (
	"sort"
	"strconv"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// Incrementer types.
const (
	IncrementRunID     = "run-id"
	IncrementTimestamp = "timestamp"
)

func configError(format string, a ...interface{}) error {
	return exception.NewConfigurationError("jsl", format, a...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the definitions for broken references and settings.
// Cycles between jobs are detected when the tree is built.
func (d *Definitions) Validate() error {
	if len(d.Jobs) == 0 {
		return configError("no jobs are defined")
	}
	for _, name := range d.DefaultContextVariables {
		if name == "" || core.IsInternal(name) {
			return configError("invalid default context variable '%s'", name)
		}
	}
	for _, name := range sortedKeys(d.Sources) {
		if err := d.validateSource(name, d.Sources[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(d.Loads) {
		if err := d.validateLoad(name, d.Loads[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(d.Jobs) {
		if err := d.validateJob(name, d.Jobs[name]); err != nil {
			return err
		}
	}
	return nil
}

// checkVariables rejects internal names except the documented execution parameters.
func checkVariables(owner string, vars map[string]string) error {
	for _, k := range sortedKeys(vars) {
		if k == "" {
			return configError("%s declares a variable without a name", owner)
		}
		if !core.IsInternal(k) {
			continue
		}
		if k != core.ParamFailOnError {
			return configError("%s: variable names starting with '%s' are reserved, got %s", owner, core.InternalPrefix, k)
		}
		if _, err := strconv.ParseBool(vars[k]); err != nil {
			return configError("%s: %s must be true or false, got '%s'", owner, k, vars[k])
		}
	}
	return nil
}

func (d *Definitions) validateSource(name string, s Source) error {
	owner := "source " + name
	switch s.Type {
	case SourceRows:
		if len(s.Columns) == 0 {
			return configError("%s has no columns", owner)
		}
		for i, r := range s.Rows {
			if len(r) != len(s.Columns) {
				return configError("%s: row %d has %d values, expected %d", owner, i+1, len(r), len(s.Columns))
			}
		}
	case SourceSQL:
		if s.Query == "" {
			return configError("%s has no query", owner)
		}
	default:
		return configError("%s has unknown type '%s'", owner, s.Type)
	}
	return nil
}

func (d *Definitions) validateLoad(name string, l Load) error {
	owner := "load " + name
	if l.Type == "" {
		return configError("%s has no type", owner)
	}
	if err := checkVariables(owner, l.Variables); err != nil {
		return err
	}
	switch l.Type {
	case LoadSQL:
		if l.Statement == "" {
			return configError("%s has no statement", owner)
		}
	case LoadLog:
		if l.Message == "" {
			return configError("%s has no message", owner)
		}
	}
	return nil
}

func (d *Definitions) checkRef(owner string, r Ref) error {
	switch {
	case r.Job != "" && r.Load != "":
		return configError("%s names both job %s and load %s", owner, r.Job, r.Load)
	case r.Job != "":
		if _, ok := d.Jobs[r.Job]; !ok {
			return configError("%s references unknown job %s", owner, r.Job)
		}
	case r.Load != "":
		if _, ok := d.Loads[r.Load]; !ok {
			return configError("%s references unknown load %s", owner, r.Load)
		}
	default:
		return configError("%s needs a job or a load", owner)
	}
	return nil
}

func (d *Definitions) validateJob(name string, j Job) error {
	owner := "job " + name
	if err := checkVariables(owner, j.Variables); err != nil {
		return err
	}
	if inc := j.Incrementer; inc != nil {
		if inc.Type != IncrementRunID && inc.Type != IncrementTimestamp {
			return configError("%s has unknown incrementer '%s'", owner, inc.Type)
		}
		if inc.Name == "" || core.IsInternal(inc.Name) {
			return configError("%s: incrementer needs a variable name", owner)
		}
	}

	for i, c := range j.Children {
		if err := d.checkRef(owner+" child "+strconv.Itoa(i+1), c); err != nil {
			return err
		}
	}

	switch j.Type {
	case TypeSequential:
		for _, c := range j.Children {
			if c.Parallel && !c.IsLoad() {
				return configError("%s is sequential but marks job %s parallel", owner, c.Job)
			}
		}
	case TypeParallel:
	case TypeLoop:
		if len(j.Children) != 1 {
			return configError("%s needs exactly one child, got %d", owner, len(j.Children))
		}
		if _, ok := d.Sources[j.Source]; !ok {
			return configError("%s references unknown source '%s'", owner, j.Source)
		}
		if j.BulkSize != nil && *j.BulkSize < 0 {
			return configError("%s has negative bulk size %d", owner, *j.BulkSize)
		}
	case TypeSwitch:
		return d.validateSwitch(owner, j)
	default:
		return configError("%s has unknown type '%s'", owner, j.Type)
	}
	return nil
}

func (d *Definitions) validateSwitch(owner string, j Job) error {
	if len(j.Children) > 0 {
		return configError("%s is a switch and cannot have children", owner)
	}
	c := j.Condition
	if c == nil {
		return configError("%s has no condition", owner)
	}
	if c.Source != "" {
		if c.Job != "" || c.Load != "" {
			return configError("%s: condition has both a source and an executable", owner)
		}
		if _, ok := d.Sources[c.Source]; !ok {
			return configError("%s references unknown source '%s'", owner, c.Source)
		}
		if c.Row < 1 {
			return configError("%s: condition row numbers start at 1, got %d", owner, c.Row)
		}
		if c.Column == "" {
			return configError("%s: condition column is missing", owner)
		}
	} else if err := d.checkRef(owner+" condition", c.Ref); err != nil {
		return err
	}

	for i, cl := range j.Clauses {
		where := owner + " clause " + strconv.Itoa(i+1)
		if n := cl.matchers(); n != 1 {
			return configError("%s needs exactly one of equals, one-of, regex, range or expression, got %d", where, n)
		}
		if err := d.checkRef(where, cl.Ref); err != nil {
			return err
		}
	}
	if j.Default != nil {
		if err := d.checkRef(owner+" default", *j.Default); err != nil {
			return err
		}
	}
	return nil
}
