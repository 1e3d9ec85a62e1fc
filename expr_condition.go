package variantz

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ConditionTypeExpr evaluates an expr-lang expression against the context
// attributes. The "expression" parameter is compiled once, at variant
// build time; context attributes appear as top-level variables and
// undefined variables resolve to nil. A run failure or a non-boolean
// result evaluates false.
const ConditionTypeExpr = "expr"

type exprCondition struct {
	program *exprvm.Program
}

func (c *exprCondition) Evaluate(ctx Context) bool {
	env := ctx.Attributes
	if env == nil {
		env = map[string]any{}
	}
	out, err := exprlang.Run(c.program, env)
	if err != nil {
		return false
	}
	verdict, ok := out.(bool)
	return ok && verdict
}

func buildExprCondition(p Params) (Condition, error) {
	source, ok := p.String("expression")
	if !ok || source == "" {
		return nil, fmt.Errorf("expr: \"expression\" must be a non-empty string")
	}
	program, err := exprlang.Compile(source,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("expr: compile %q: %v", source, err)
	}
	return &exprCondition{program: program}, nil
}
