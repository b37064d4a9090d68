package evaluator

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"etlflow/pkg/batch/util/exception"
)

// ValueVariable is the name the condition value is bound to in expressions.
const ValueVariable = "value"

var functions = map[string]function.Function{
	"upper":     stdlib.UpperFunc,
	"lower":     stdlib.LowerFunc,
	"strlen":    stdlib.StrlenFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"min":       stdlib.MinFunc,
	"max":       stdlib.MaxFunc,
}

// Expression is a boolean HCL expression over the condition value, such as
//
//	value >= 10 && value < 20
//	lower(trimspace(value)) == "done"
type Expression struct {
	source string
	expr   hclsyntax.Expression
}

// NewExpression parses src. Only the variable "value" may be referenced.
func NewExpression(src string) (*Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, exception.NewConfigurationError("evaluator", "cannot parse expression %q", src, diags)
	}
	for _, traversal := range expr.Variables() {
		if root := traversal.RootName(); root != ValueVariable {
			return nil, exception.NewConfigurationError("evaluator",
				"expression %q references unknown variable %s", src, root)
		}
	}
	return &Expression{source: src, expr: expr}, nil
}

func (e *Expression) String() string { return e.source }

func (e *Expression) Evaluate(value string) (bool, error) {
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{ValueVariable: cty.StringVal(value)},
		Functions: functions,
	}
	out, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return false, exception.NewRuntimeError("evaluator", "cannot evaluate %q for '%s'", e.source, value, diags)
	}
	out, err := convert.Convert(out, cty.Bool)
	if err != nil {
		return false, exception.NewRuntimeError("evaluator", "%q does not yield a boolean", e.source, err)
	}
	if out.IsNull() || !out.IsKnown() {
		return false, nil
	}
	return out.True(), nil
}
