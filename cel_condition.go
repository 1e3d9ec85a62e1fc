package variantz

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// ConditionTypeCEL evaluates a CEL expression against the context
// attributes, exposed as an `attributes` map of dyn values, e.g.
// `attributes["country"] == "US"`. The "expression" parameter is compiled
// and checked once, at variant build time. An eval failure or a
// non-boolean result evaluates false.
const ConditionTypeCEL = "cel"

type celCondition struct {
	program celgo.Program
}

func (c *celCondition) Evaluate(ctx Context) bool {
	attributes := ctx.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}
	out, _, err := c.program.Eval(map[string]any{"attributes": attributes})
	if err != nil {
		return false
	}
	return out == types.True
}

func buildCELCondition(p Params) (Condition, error) {
	source, ok := p.String("expression")
	if !ok || source == "" {
		return nil, fmt.Errorf("cel: \"expression\" must be a non-empty string")
	}
	env, err := celgo.NewEnv(
		celgo.Variable("attributes", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel: environment: %v", err)
	}
	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel: compile %q: %v", source, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel: program %q: %v", source, err)
	}
	return &celCondition{program: program}, nil
}
