package variantz

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Built-in condition type identifiers. All are registered by New and may
// be overridden via RegisterConditionType.
const (
	// ConditionTypeAlwaysTrue matches every context. No parameters.
	ConditionTypeAlwaysTrue = "always_true"

	// ConditionTypeAttrEquals matches when the context attribute named by
	// "attribute" equals "value" (numeric kinds compare across types).
	ConditionTypeAttrEquals = "attr_equals"

	// ConditionTypeAttrIn matches when the context attribute named by
	// "attribute" equals any element of "values".
	ConditionTypeAttrIn = "attr_in"

	// ConditionTypeModRange matches when the integer context attribute
	// named by "attribute", taken mod 100, falls inside the inclusive
	// ["min", "max"] range.
	ConditionTypeModRange = "mod_range"

	// ConditionTypeRandom matches with the given "probability" in [0, 1],
	// drawn from the registry's injected probability source.
	ConditionTypeRandom = "random"

	// ConditionTypePercentRollout deterministically buckets the string
	// form of the attribute named by "attribute" into [0, 100) and
	// matches when the bucket is below "percent". Stable across
	// processes and restarts.
	ConditionTypePercentRollout = "percent_rollout"
)

func (r *Registry) registerBuiltins() {
	r.types.Register(ConditionTypeAlwaysTrue, func(Params) (Condition, error) {
		return ConditionFunc(func(Context) bool { return true }), nil
	})

	r.types.Register(ConditionTypeAttrEquals, func(p Params) (Condition, error) {
		attribute, ok := p.String("attribute")
		if !ok || attribute == "" {
			return nil, fmt.Errorf("attr_equals: \"attribute\" must be a non-empty string")
		}
		want, ok := p["value"]
		if !ok {
			return nil, fmt.Errorf("attr_equals: missing \"value\"")
		}
		return ConditionFunc(func(ctx Context) bool {
			got, ok := ctx.Attr(attribute)
			return ok && valuesEqual(got, want)
		}), nil
	})

	r.types.Register(ConditionTypeAttrIn, func(p Params) (Condition, error) {
		attribute, ok := p.String("attribute")
		if !ok || attribute == "" {
			return nil, fmt.Errorf("attr_in: \"attribute\" must be a non-empty string")
		}
		values, ok := p.Slice("values")
		if !ok {
			return nil, fmt.Errorf("attr_in: \"values\" must be a list")
		}
		return ConditionFunc(func(ctx Context) bool {
			got, ok := ctx.Attr(attribute)
			return ok && valueIn(got, values)
		}), nil
	})

	r.types.Register(ConditionTypeModRange, func(p Params) (Condition, error) {
		attribute, ok := p.String("attribute")
		if !ok || attribute == "" {
			return nil, fmt.Errorf("mod_range: \"attribute\" must be a non-empty string")
		}
		min, ok := p.Int("min")
		if !ok {
			return nil, fmt.Errorf("mod_range: \"min\" must be an integer")
		}
		max, ok := p.Int("max")
		if !ok {
			return nil, fmt.Errorf("mod_range: \"max\" must be an integer")
		}
		if min > max {
			return nil, fmt.Errorf("mod_range: min %d exceeds max %d", min, max)
		}
		return ConditionFunc(func(ctx Context) bool {
			n, ok := ctx.IntAttr(attribute)
			if !ok {
				return false
			}
			bucket := int(((n % 100) + 100) % 100)
			return bucket >= min && bucket <= max
		}), nil
	})

	r.types.Register(ConditionTypeRandom, func(p Params) (Condition, error) {
		probability, ok := p.Float("probability")
		if !ok || probability < 0 || probability > 1 {
			return nil, fmt.Errorf("random: \"probability\" must be a number in [0, 1]")
		}
		return ConditionFunc(func(Context) bool {
			return r.randFloat() <= probability
		}), nil
	})

	r.types.Register(ConditionTypePercentRollout, func(p Params) (Condition, error) {
		attribute, ok := p.String("attribute")
		if !ok || attribute == "" {
			return nil, fmt.Errorf("percent_rollout: \"attribute\" must be a non-empty string")
		}
		percent, ok := p.Float("percent")
		if !ok || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("percent_rollout: \"percent\" must be a number in [0, 100]")
		}
		return ConditionFunc(func(ctx Context) bool {
			value, ok := ctx.Attr(attribute)
			if !ok {
				return false
			}
			bucket := xxhash.Sum64String(fmt.Sprintf("%v", value)) % 100
			return float64(bucket) < percent
		}), nil
	})

	r.types.Register(ConditionTypeExpr, buildExprCondition)
	r.types.Register(ConditionTypeCEL, buildCELCondition)
}
