package variantz

import "fmt"

// A Flag declares a configuration key, a human-readable description, and
// the base value resolution falls back to when no variant overrides it.
// Flags are immutable once constructed.
type Flag struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	BaseValue   any    `json:"baseValue" yaml:"baseValue"`
}

// FlagFromSpec decodes a Flag from its untyped serialized form. The spec
// must carry a non-empty string "name"; "description" and "baseValue" are
// optional.
func FlagFromSpec(spec map[string]any) (Flag, error) {
	name, ok := spec["name"].(string)
	if !ok || name == "" {
		return Flag{}, fmt.Errorf("%w: missing or non-string \"name\"", ErrMalformedFlagSpec)
	}
	description, _ := spec["description"].(string)
	return Flag{
		Name:        name,
		Description: description,
		BaseValue:   spec["baseValue"],
	}, nil
}
