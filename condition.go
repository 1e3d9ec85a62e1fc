package variantz

import (
	"fmt"
	"strings"
	"sync"
)

// A Condition is a boolean predicate over an evaluation context. Conditions
// are stateless: Evaluate must not mutate the context or shared state, and
// must not fail — an absent or mistyped context attribute evaluates false.
type Condition interface {
	Evaluate(ctx Context) bool
}

// ConditionFunc adapts a plain function to the Condition interface.
type ConditionFunc func(ctx Context) bool

// Evaluate calls f.
func (f ConditionFunc) Evaluate(ctx Context) bool { return f(ctx) }

// Params is the decoded parameter bundle a condition factory receives:
// every key of the serialized condition entry except "type".
type Params map[string]any

// String returns the named parameter if present and a string.
func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Float returns the named parameter coerced to a float64. Integer kinds
// coerce; strings and everything else do not.
func (p Params) Float(key string) (float64, bool) {
	value, ok := p[key]
	if !ok {
		return 0, false
	}
	if f, ok := asFloat64(value); ok {
		return f, true
	}
	if i, ok := asInt64(value); ok {
		return float64(i), true
	}
	return 0, false
}

// Int returns the named parameter coerced to an int. Whole floats (the
// usual shape of JSON-decoded numbers) coerce.
func (p Params) Int(key string) (int, bool) {
	value, ok := p[key]
	if !ok {
		return 0, false
	}
	i, ok := asInt64(value)
	if !ok {
		return 0, false
	}
	return int(i), true
}

// Slice returns the named parameter as a []any. Typed slices are copied
// element-wise.
func (p Params) Slice(key string) ([]any, bool) {
	value, ok := p[key]
	if !ok {
		return nil, false
	}
	return asAnySlice(value)
}

// A Factory builds a Condition from decoded parameters. Factories run at
// variant construction time, so parameter validation failures surface as
// config errors instead of silent evaluation misses.
type Factory func(params Params) (Condition, error)

// ConditionTypes maps condition-type identifiers to factories. Identifiers
// are case-insensitive. Registering an identifier twice overwrites the
// earlier factory, which is how built-in condition types are replaced.
type ConditionTypes struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewConditionTypes returns an empty condition-type table.
func NewConditionTypes() *ConditionTypes {
	return &ConditionTypes{factories: make(map[string]Factory)}
}

// Register maps identifier to factory, last write wins.
func (t *ConditionTypes) Register(identifier string, factory Factory) {
	t.mu.Lock()
	t.factories[normalizeConditionType(identifier)] = factory
	t.mu.Unlock()
}

// Build looks up the factory for identifier and invokes it with params.
// It fails with ErrUnknownConditionType for unregistered identifiers.
func (t *ConditionTypes) Build(identifier string, params Params) (Condition, error) {
	t.mu.RLock()
	factory, ok := t.factories[normalizeConditionType(identifier)]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConditionType, identifier)
	}
	return factory(params)
}

func normalizeConditionType(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// A ConditionSpec is the serialized form of a condition: its type
// identifier plus the parameters the factory was invoked with. Variants
// built from configuration retain their specs so a registry can be
// re-encoded.
type ConditionSpec struct {
	Type   string
	Params Params
}
