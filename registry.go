package variantz

import (
	"fmt"
	"math/rand"
	"sync"
)

// A Registry is the aggregate store of flags, variants, and condition
// types, and the resolution entry point. A single sync.RWMutex guards the
// flag table and variant list: readers (resolution and snapshots) take the
// read lock, writers (registration and config loads) the write lock, so a
// reader sees either the pre- or post-load state, never a mix.
type Registry struct {
	mu       sync.RWMutex
	flags    map[string]Flag
	order    []string // flag names in registration order
	variants []Variant

	types *ConditionTypes

	// randFloat feeds the probabilistic "random" condition type.
	// Injectable so tests can pin outcomes.
	randFloat func() float64
}

// An Option configures a Registry at construction time.
type Option func(*Registry)

// WithRandFloat64 injects the probability source used by the "random"
// condition type. fn must return values in [0, 1).
func WithRandFloat64(fn func() float64) Option {
	return func(r *Registry) {
		if fn != nil {
			r.randFloat = fn
		}
	}
}

// New allocates a Registry with the built-in condition types registered.
func New(opts ...Option) *Registry {
	r := &Registry{
		flags:     make(map[string]Flag),
		types:     NewConditionTypes(),
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.registerBuiltins()
	return r
}

// AddFlag registers a flag. A name already held by the registry is
// rejected with ErrDuplicateFlag; an empty name with ErrMalformedFlagSpec.
func (r *Registry) AddFlag(f Flag) error {
	if f.Name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedFlagSpec)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addFlagLocked(f)
}

func (r *Registry) addFlagLocked(f Flag) error {
	if _, present := r.flags[f.Name]; present {
		return fmt.Errorf("%w: %q", ErrDuplicateFlag, f.Name)
	}
	r.flags[f.Name] = f
	r.order = append(r.order, f.Name)
	return nil
}

// AddVariant appends a variant to the ordered list. Earlier variants have
// higher resolution priority. An identifier already held by the registry
// is rejected with ErrDuplicateVariant. Mods may reference flags that are
// not (yet) registered.
func (r *Registry) AddVariant(v Variant) error {
	if v.identifier == "" {
		return fmt.Errorf("%w: missing \"identifier\"", ErrMalformedVariantSpec)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addVariantLocked(v)
}

func (r *Registry) addVariantLocked(v Variant) error {
	if r.findVariantLocked(v.identifier) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateVariant, v.identifier)
	}
	r.variants = append(r.variants, v)
	return nil
}

func (r *Registry) findVariantLocked(identifier string) int {
	for i := range r.variants {
		if r.variants[i].identifier == identifier {
			return i
		}
	}
	return -1
}

// RegisterConditionType maps a condition-type identifier to a factory,
// overwriting any previous mapping. Register types before loading
// configuration that references them.
func (r *Registry) RegisterConditionType(identifier string, factory Factory) {
	r.types.Register(identifier, factory)
}

// BuildCondition materializes a condition through the registry's
// condition-type table, for callers assembling variants programmatically.
func (r *Registry) BuildCondition(identifier string, params Params) (Condition, error) {
	return r.types.Build(identifier, params)
}

// A Resolution records the outcome of resolving one flag: the effective
// value and, when a variant supplied it, that variant's identifier.
type Resolution struct {
	FlagName  string `json:"flagName"`
	Value     any    `json:"value"`
	VariantID string `json:"variantId,omitempty"`
}

// Base reports whether the flag's base value applied, i.e. no variant
// matched and overrode the flag.
func (res Resolution) Base() bool { return res.VariantID == "" }

// FlagValue resolves a flag against the empty context. Conditions that
// need context attributes evaluate false, so only unconditional variants
// can override.
func (r *Registry) FlagValue(name string) (any, error) {
	return r.FlagValueWithContext(name, Context{})
}

// FlagValueWithContext resolves a flag against ctx, returning the
// effective value. Unregistered names fail with ErrUnknownFlag.
func (r *Registry) FlagValueWithContext(name string, ctx Context) (any, error) {
	res, err := r.Resolve(name, ctx)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Resolve walks the variant list in priority order. The first variant
// that both evaluates true for ctx and carries a mod for the flag decides
// the value; otherwise the flag's base value applies. Resolution is
// deterministic for a given registry state and context, modulo condition
// types that consult the injected probability source.
func (r *Registry) Resolve(name string, ctx Context) (Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flags[name]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
	}
	for i := range r.variants {
		v := &r.variants[i]
		if !v.Evaluate(ctx) {
			continue
		}
		if value, ok := v.ValueForFlag(name); ok {
			return Resolution{FlagName: name, Value: value, VariantID: v.identifier}, nil
		}
	}
	return Resolution{FlagName: name, Value: f.BaseValue}, nil
}

// Flags returns a snapshot of registered flags in registration order.
func (r *Registry) Flags() []Flag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Flag, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.flags[name])
	}
	return out
}

// Variants returns a snapshot of registered variants in priority order.
func (r *Registry) Variants() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Variant(nil), r.variants...)
}
