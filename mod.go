package variantz

import "fmt"

// A Mod overrides one flag's value while its owning variant is active.
// The flag name is a reference, not ownership: a mod may name a flag that
// has not (yet) been registered.
type Mod struct {
	FlagName string `json:"flagName" yaml:"flagName"`
	Value    any    `json:"value" yaml:"value"`
}

// ModFromSpec decodes a Mod from its untyped serialized form. The spec
// must carry a non-empty string "flagName".
func ModFromSpec(spec map[string]any) (Mod, error) {
	flagName, ok := spec["flagName"].(string)
	if !ok || flagName == "" {
		return Mod{}, fmt.Errorf("%w: missing or non-string \"flagName\"", ErrMalformedModSpec)
	}
	return Mod{FlagName: flagName, Value: spec["value"]}, nil
}
