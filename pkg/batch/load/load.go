// Package load provides the atomic units of work that job nodes run inline
// or through their own executions.
package load

import (
	"context"
	"regexp"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

type base struct {
	locator core.Locator
	vars    core.Variables
}

func newBase(name string, vars core.Variables) base {
	return base{locator: core.NewLocator(core.KindLoads, name), vars: vars.Clone()}
}

func (b base) Locator() core.Locator     { return b.locator }
func (b base) IsParallel() bool          { return false }
func (b base) Variables() core.Variables { return b.vars }

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expand replaces every ${name} in text with the value of name in vars.
// Referencing an undefined variable is an error.
func Expand(text string, vars core.Variables) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", exception.NewRuntimeError("load", "variable %s is not defined", missing)
	}
	return out, nil
}

// Func runs a Go function as a load.
type Func struct {
	base
	fn func(ctx context.Context, scope *core.Scope) error
}

var _ core.Executable = (*Func)(nil)

func NewFunc(name string, vars core.Variables, fn func(ctx context.Context, scope *core.Scope) error) *Func {
	return &Func{base: newBase(name, vars), fn: fn}
}

func (f *Func) Execute(ctx context.Context, scope *core.Scope) error {
	return f.fn(ctx, scope)
}

func (f *Func) Validate() error {
	if f.fn == nil {
		return exception.NewConfigurationError("load", "%s has no function", f.locator)
	}
	return nil
}
