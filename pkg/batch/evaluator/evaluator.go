// Package evaluator holds the condition evaluators used by switch clauses.
package evaluator

import (
	"regexp"
	"strconv"
	"strings"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// Equals matches one value, optionally ignoring case.
type Equals struct {
	Value      string
	IgnoreCase bool
}

var _ core.ConditionEvaluator = Equals{}

func (e Equals) Evaluate(value string) (bool, error) {
	if e.IgnoreCase {
		return strings.EqualFold(e.Value, value), nil
	}
	return e.Value == value, nil
}

// OneOf matches any of a set of values.
type OneOf struct {
	Values []string
}

func (o OneOf) Evaluate(value string) (bool, error) {
	for _, v := range o.Values {
		if v == value {
			return true, nil
		}
	}
	return false, nil
}

// Regex matches values against a regular expression. The whole value has to match.
type Regex struct {
	re *regexp.Regexp
}

func NewRegex(pattern string) (*Regex, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, exception.NewConfigurationError("evaluator", "invalid pattern %q", pattern, err)
	}
	return &Regex{re: re}, nil
}

func (r *Regex) Evaluate(value string) (bool, error) {
	return r.re.MatchString(value), nil
}

// Range matches numeric values within inclusive bounds. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

func (r Range) Evaluate(value string) (bool, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false, exception.NewRuntimeError("evaluator", "'%s' is not a number", value, err)
	}
	if r.Min != nil && n < *r.Min {
		return false, nil
	}
	if r.Max != nil && n > *r.Max {
		return false, nil
	}
	return true, nil
}
