package variantz

import "sync"

// The package-level default registry mirrors the Registry API for hosts
// that want one process-wide instance without wiring their own. Prefer an
// explicitly constructed Registry in anything that needs testability.
var (
	defaultMu       sync.RWMutex
	defaultRegistry = New()
)

// Default returns the process-wide default registry.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRegistry
}

// Reset replaces the default registry with a fresh one. Intended for
// tests.
func Reset() {
	defaultMu.Lock()
	defaultRegistry = New()
	defaultMu.Unlock()
}

// AddFlag registers f with the default registry.
func AddFlag(f Flag) error { return Default().AddFlag(f) }

// AddVariant registers v with the default registry.
func AddVariant(v Variant) error { return Default().AddVariant(v) }

// RegisterConditionType registers a condition-type factory with the
// default registry.
func RegisterConditionType(identifier string, factory Factory) {
	Default().RegisterConditionType(identifier, factory)
}

// FlagValue resolves a flag against the empty context using the default
// registry.
func FlagValue(name string) (any, error) { return Default().FlagValue(name) }

// FlagValueWithContext resolves a flag against ctx using the default
// registry.
func FlagValueWithContext(name string, ctx Context) (any, error) {
	return Default().FlagValueWithContext(name, ctx)
}

// Flags returns the default registry's flags in registration order.
func Flags() []Flag { return Default().Flags() }

// Variants returns the default registry's variants in priority order.
func Variants() []Variant { return Default().Variants() }

// LoadJSON loads a JSON payload into the default registry.
func LoadJSON(data []byte) error { return Default().LoadJSON(data) }

// LoadYAML loads a YAML payload into the default registry.
func LoadYAML(data []byte) error { return Default().LoadYAML(data) }

// LoadConfig loads a configuration file into the default registry.
func LoadConfig(path string) error { return Default().LoadConfig(path) }

// ReloadJSON merges a JSON payload over the default registry.
func ReloadJSON(data []byte) error { return Default().ReloadJSON(data) }

// ReloadYAML merges a YAML payload over the default registry.
func ReloadYAML(data []byte) error { return Default().ReloadYAML(data) }

// ReloadConfig merges a configuration file over the default registry.
func ReloadConfig(path string) error { return Default().ReloadConfig(path) }
