package variantz

import (
	"errors"
	"fmt"
	"strings"
)

// Op combines a variant's conditions into a single verdict.
type Op string

const (
	// OpAnd requires every condition to hold. An AND variant with no
	// conditions is vacuously true — the "always-on" variant.
	OpAnd Op = "and"

	// OpOr requires at least one condition to hold. An OR variant with
	// no conditions is false.
	OpOr Op = "or"
)

// parseOp recognizes an operator token case-insensitively. An empty token
// defaults to AND.
func parseOp(token string) (Op, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", string(OpAnd):
		return OpAnd, true
	case string(OpOr):
		return OpOr, true
	}
	return "", false
}

// A Variant is a named bundle of conditions and mods: when its conditions
// hold for a context, its mods override the flags they name. Variants are
// immutable after construction.
type Variant struct {
	identifier string
	op         Op
	conditions []Condition
	specs      []ConditionSpec
	mods       []Mod
}

// NewVariant constructs a variant from already-built conditions. Variants
// built this way have no serialized condition specs, so they are invisible
// to EncodeJSON; variants decoded from configuration retain theirs.
func NewVariant(identifier string, op Op, conditions []Condition, mods []Mod) Variant {
	return Variant{
		identifier: identifier,
		op:         op,
		conditions: append([]Condition(nil), conditions...),
		mods:       append([]Mod(nil), mods...),
	}
}

// Identifier returns the variant's unique identifier.
func (v Variant) Identifier() string { return v.identifier }

// Op returns the condition combinator.
func (v Variant) Op() Op { return v.op }

// Mods returns a copy of the variant's mods in declared order.
func (v Variant) Mods() []Mod {
	return append([]Mod(nil), v.mods...)
}

// ConditionSpecs returns a copy of the serialized condition forms, in
// declared order. Empty for variants built with NewVariant.
func (v Variant) ConditionSpecs() []ConditionSpec {
	return append([]ConditionSpec(nil), v.specs...)
}

// ValueForFlag returns the override value of the first mod naming the
// flag, in declared order. Later mods for the same flag are shadowed.
// The second result reports whether this variant mods the flag at all.
func (v Variant) ValueForFlag(name string) (any, bool) {
	for _, m := range v.mods {
		if m.FlagName == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Evaluate combines the variant's conditions under its operator,
// short-circuiting on the first decisive condition. With no conditions an
// AND variant is true and an OR variant is false.
func (v Variant) Evaluate(ctx Context) bool {
	if v.op == OpOr {
		for _, c := range v.conditions {
			if c.Evaluate(ctx) {
				return true
			}
		}
		return false
	}
	for _, c := range v.conditions {
		if !c.Evaluate(ctx) {
			return false
		}
	}
	return true
}

// variantSpec is the serialized shape of a variant in a config payload.
type variantSpec struct {
	Identifier string           `json:"identifier" yaml:"identifier"`
	Op         string           `json:"op" yaml:"op"`
	Conditions []map[string]any `json:"conditions" yaml:"conditions"`
	Mods       []map[string]any `json:"mods" yaml:"mods"`
}

// buildVariant materializes a variant spec: the operator token is parsed,
// each condition entry is resolved through the condition-type table, and
// each mod entry is decoded. Factory failures are malformed-variant
// errors; unknown condition types propagate as ErrUnknownConditionType.
func (r *Registry) buildVariant(spec variantSpec) (Variant, error) {
	if spec.Identifier == "" {
		return Variant{}, fmt.Errorf("%w: missing \"identifier\"", ErrMalformedVariantSpec)
	}
	op, ok := parseOp(spec.Op)
	if !ok {
		return Variant{}, fmt.Errorf("%w: variant %q: unrecognized op %q", ErrMalformedVariantSpec, spec.Identifier, spec.Op)
	}

	conditions := make([]Condition, 0, len(spec.Conditions))
	specs := make([]ConditionSpec, 0, len(spec.Conditions))
	for i, entry := range spec.Conditions {
		typ, ok := entry["type"].(string)
		if !ok || typ == "" {
			return Variant{}, fmt.Errorf("%w: variant %q: condition %d missing \"type\"", ErrMalformedVariantSpec, spec.Identifier, i)
		}
		params := make(Params, len(entry))
		for key, value := range entry {
			if key != "type" {
				params[key] = value
			}
		}
		condition, err := r.types.Build(typ, params)
		if err != nil {
			if errors.Is(err, ErrUnknownConditionType) {
				return Variant{}, fmt.Errorf("variant %q: %w", spec.Identifier, err)
			}
			return Variant{}, fmt.Errorf("%w: variant %q: condition %q: %v", ErrMalformedVariantSpec, spec.Identifier, typ, err)
		}
		conditions = append(conditions, condition)
		specs = append(specs, ConditionSpec{Type: normalizeConditionType(typ), Params: params})
	}

	mods := make([]Mod, 0, len(spec.Mods))
	for _, entry := range spec.Mods {
		mod, err := ModFromSpec(entry)
		if err != nil {
			return Variant{}, fmt.Errorf("variant %q: %w", spec.Identifier, err)
		}
		mods = append(mods, mod)
	}

	return Variant{
		identifier: spec.Identifier,
		op:         op,
		conditions: conditions,
		specs:      specs,
		mods:       mods,
	}, nil
}
