package core

import (
	"sort"
	"strings"
	"sync"
)

// Names of internal execution parameters. They travel with the environment
// and are never set by ordinary job definitions.
const (
	InternalPrefix   = "#"
	ParamFailOnError = "#failOnError"
	ParamSyncMode    = "#syncMode"
)

// Variables is a set of named string values. A Variables value handed to
// another component is never mutated afterwards; use Clone or With.
type Variables map[string]string

// Clone returns an independent copy. Cloning nil returns an empty set.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// With returns a copy of v with name set to value.
func (v Variables) With(name, value string) Variables {
	out := v.Clone()
	out[name] = value
	return out
}

// Keys returns the variable names in sorted order.
func (v Variables) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether name is defined.
func (v Variables) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Get returns the value of name or def when it is not defined.
func (v Variables) Get(name, def string) string {
	if val, ok := v[name]; ok {
		return val
	}
	return def
}

var (
	defaultContextMu   sync.RWMutex
	defaultContextVars = map[string]struct{}{}
)

// RegisterDefaultContextVariable marks name as a default context variable:
// a value defined by a nested job overrides the one inherited from its parent.
func RegisterDefaultContextVariable(name string) {
	defaultContextMu.Lock()
	defer defaultContextMu.Unlock()
	defaultContextVars[name] = struct{}{}
}

// ResetDefaultContextVariables clears the registered names.
func ResetDefaultContextVariables() {
	defaultContextMu.Lock()
	defer defaultContextMu.Unlock()
	defaultContextVars = map[string]struct{}{}
}

// IsInternal reports whether name is an internal execution parameter.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, InternalPrefix)
}

// IsDefaultContextVariable reports whether the deeper definition of name wins.
func IsDefaultContextVariable(name string) bool {
	if IsInternal(name) {
		return true
	}
	defaultContextMu.RLock()
	defer defaultContextMu.RUnlock()
	_, ok := defaultContextVars[name]
	return ok
}

// MergeForChild computes the environment a child sees from its parent's
// environment and its own declared defaults. Inherited values win over the
// child's defaults, except for default context variables.
func MergeForChild(parent, own Variables) Variables {
	out := parent.Clone()
	for k, val := range own {
		if _, inherited := parent[k]; !inherited || IsDefaultContextVariable(k) {
			out[k] = val
		}
	}
	return out
}

// Shadowed lists the names declared in own whose values are replaced by
// inherited ones when merged under parent.
func Shadowed(parent, own Variables) []string {
	var names []string
	for _, k := range own.Keys() {
		if pv, ok := parent[k]; ok && !IsDefaultContextVariable(k) && pv != own[k] {
			names = append(names, k)
		}
	}
	return names
}

// Environment is the variable view of one executable: the snapshot inherited
// from its caller plus the defaults the executable declares itself.
type Environment struct {
	External Variables
	Own      Variables
}

// Resolved returns the effective variables of the environment.
func (e Environment) Resolved() Variables {
	return MergeForChild(e.External, e.Own)
}
