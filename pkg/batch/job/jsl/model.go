package jsl

import (
	"etlflow/pkg/batch/job/core"
)

// Job types.
const (
	TypeSequential = "sequential"
	TypeParallel   = "parallel"
	TypeLoop       = "loop"
	TypeSwitch     = "switch"
)

// Load and source types understood without extra registration.
const (
	LoadSQL    = "sql"
	LoadLog    = "log"
	LoadFail   = "fail"
	SourceSQL  = "sql"
	SourceRows = "static"
)

// Definitions is the content of one or more definition files.
type Definitions struct {
	// DefaultContextVariables are overridden by nested jobs instead of inherited.
	DefaultContextVariables []string          `yaml:"default-context-variables,omitempty"`
	Sources                 map[string]Source `yaml:"sources,omitempty"`
	Loads                   map[string]Load   `yaml:"loads,omitempty"`
	Jobs                    map[string]Job    `yaml:"jobs"`
}

// Source describes a loop or condition source.
type Source struct {
	Type    string     `yaml:"type"`
	Query   string     `yaml:"query,omitempty"`
	Columns []string   `yaml:"columns,omitempty"`
	Rows    [][]string `yaml:"rows,omitempty"`
}

// Load describes an atomic unit of work.
type Load struct {
	Type        string            `yaml:"type"`
	Description string            `yaml:"description,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty"`
	Statement   string            `yaml:"statement,omitempty"`
	Message     string            `yaml:"message,omitempty"`
	Warning     bool              `yaml:"warning,omitempty"`
	// Properties are passed untouched to builders of custom load types.
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Ref points at a job or a load.
type Ref struct {
	Job      string `yaml:"job,omitempty"`
	Load     string `yaml:"load,omitempty"`
	Parallel bool   `yaml:"parallel,omitempty"`
}

// IsLoad reports whether the reference names a load.
func (r Ref) IsLoad() bool { return r.Load != "" }

// Locator returns the locator of the referenced executable.
func (r Ref) Locator() core.Locator {
	if r.IsLoad() {
		return core.NewLocator(core.KindLoads, r.Load)
	}
	return core.NewLocator(core.KindJobs, r.Job)
}

// Job describes a job node of any type.
type Job struct {
	Type        string            `yaml:"type"`
	Description string            `yaml:"description,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty"`
	Children    []Ref             `yaml:"children,omitempty"`
	Incrementer *Incrementer      `yaml:"incrementer,omitempty"`

	// loop
	Source   string `yaml:"source,omitempty"`
	BulkSize *int   `yaml:"bulk-size,omitempty"`
	Parallel bool   `yaml:"parallel,omitempty"`

	// switch
	Condition *Condition `yaml:"condition,omitempty"`
	Clauses   []Clause   `yaml:"clauses,omitempty"`
	Default   *Ref       `yaml:"default,omitempty"`
}

// Incrementer adds a generated variable every time a job is launched.
type Incrementer struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// Condition is where a switch reads its value from: a cell of a source or
// the result code of a job or load.
type Condition struct {
	Source string `yaml:"source,omitempty"`
	Row    int    `yaml:"row,omitempty"`
	Column string `yaml:"column,omitempty"`
	Ref    `yaml:",inline"`
}

// Clause is one branch of a switch. Exactly one matcher has to be set.
type Clause struct {
	Name       string   `yaml:"name,omitempty"`
	Equals     *string  `yaml:"equals,omitempty"`
	IgnoreCase bool     `yaml:"ignore-case,omitempty"`
	OneOf      []string `yaml:"one-of,omitempty"`
	Regex      string   `yaml:"regex,omitempty"`
	Range      *Range   `yaml:"range,omitempty"`
	Expression string   `yaml:"expression,omitempty"`
	Ref        `yaml:",inline"`
}

type Range struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

func (c Clause) matchers() int {
	n := 0
	if c.Equals != nil {
		n++
	}
	if len(c.OneOf) > 0 {
		n++
	}
	if c.Regex != "" {
		n++
	}
	if c.Range != nil {
		n++
	}
	if c.Expression != "" {
		n++
	}
	return n
}
