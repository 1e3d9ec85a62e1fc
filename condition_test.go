package variantz

import (
	"errors"
	"testing"
)

func TestConditionTypesRegisterOverwrites(t *testing.T) {
	types := NewConditionTypes()
	types.Register("mine", func(Params) (Condition, error) {
		return ConditionFunc(func(Context) bool { return false }), nil
	})
	// Re-registering the same identifier is last-write-wins: this is the
	// replacement mechanism for built-in condition types.
	types.Register("mine", func(Params) (Condition, error) {
		return ConditionFunc(func(Context) bool { return true }), nil
	})

	c, err := types.Build("mine", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !c.Evaluate(Context{}) {
		t.Error("Build returned the first factory's condition, want the overwriting one")
	}
}

func TestConditionTypesBuildUnknown(t *testing.T) {
	types := NewConditionTypes()
	if _, err := types.Build("percent_rollout", nil); !errors.Is(err, ErrUnknownConditionType) {
		t.Fatalf("Build(percent_rollout): got %v, want ErrUnknownConditionType", err)
	}
}

func TestConditionTypesCaseInsensitive(t *testing.T) {
	types := NewConditionTypes()
	types.Register("Always_True", func(Params) (Condition, error) {
		return ConditionFunc(func(Context) bool { return true }), nil
	})
	if _, err := types.Build("ALWAYS_TRUE", nil); err != nil {
		t.Fatalf("Build with different case: %v", err)
	}
}

func TestConditionTypesFactoryParams(t *testing.T) {
	types := NewConditionTypes()
	var got Params
	types.Register("capture", func(p Params) (Condition, error) {
		got = p
		return ConditionFunc(func(Context) bool { return true }), nil
	})
	if _, err := types.Build("capture", Params{"threshold": 0.5}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, ok := got.Float("threshold"); !ok || v != 0.5 {
		t.Errorf("factory params = %v, want threshold 0.5", got)
	}
}

func TestParamsAccessors(t *testing.T) {
	p := Params{
		"s":     "text",
		"f":     1.5,
		"i":     float64(42), // JSON-decoded integer
		"list":  []any{"a", "b"},
		"typed": []string{"x", "y"},
	}

	if v, ok := p.String("s"); !ok || v != "text" {
		t.Errorf("String(s) = (%q, %t)", v, ok)
	}
	if _, ok := p.String("f"); ok {
		t.Error("String(f) coerced a float, want miss")
	}
	if v, ok := p.Float("f"); !ok || v != 1.5 {
		t.Errorf("Float(f) = (%v, %t)", v, ok)
	}
	if v, ok := p.Int("i"); !ok || v != 42 {
		t.Errorf("Int(i) = (%v, %t)", v, ok)
	}
	if _, ok := p.Int("f"); ok {
		t.Error("Int(f) coerced a fractional float, want miss")
	}
	if v, ok := p.Slice("list"); !ok || len(v) != 2 {
		t.Errorf("Slice(list) = (%v, %t)", v, ok)
	}
	if v, ok := p.Slice("typed"); !ok || len(v) != 2 || v[0] != "x" {
		t.Errorf("Slice(typed) = (%v, %t)", v, ok)
	}
	if _, ok := p.Slice("s"); ok {
		t.Error("Slice(s) accepted a string, want miss")
	}
	if _, ok := p.Float("missing"); ok {
		t.Error("Float(missing) reported present")
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := Context{Attributes: map[string]any{
		"country": "US",
		"user_id": float64(123),
		"ratio":   1.5,
	}}

	if v, ok := ctx.StringAttr("country"); !ok || v != "US" {
		t.Errorf("StringAttr(country) = (%q, %t)", v, ok)
	}
	if v, ok := ctx.IntAttr("user_id"); !ok || v != 123 {
		t.Errorf("IntAttr(user_id) = (%v, %t)", v, ok)
	}
	if _, ok := ctx.IntAttr("ratio"); ok {
		t.Error("IntAttr(ratio) coerced a fractional float, want miss")
	}

	var empty Context
	if _, ok := empty.Attr("anything"); ok {
		t.Error("zero Context reported an attribute present")
	}
}
