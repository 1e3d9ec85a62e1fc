// Package variantz resolves named configuration flags to context-dependent
// values. Flags declare a base value; variants carry conditional overrides
// ("mods") that apply when their conditions hold for a given evaluation
// context. The registry scans variants in registration order and the first
// matching variant that overrides a flag wins, falling back to the flag's
// base value.
//
// Condition semantics are pluggable: the registry maps condition-type
// identifiers to factories, so host applications can add predicates (or
// replace the built-in ones) without touching variant or registry logic.
//
// Configuration is fed to the registry as a decoded payload (JSON or YAML);
// fetching, storing, and trusting that payload is the caller's problem.
package variantz

// Context carries the caller-supplied attributes that conditions evaluate
// against, e.g. user or request properties. A zero Context is valid and
// has no attributes; conditions that need an absent attribute evaluate
// false rather than failing.
type Context struct {
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Attr returns the named attribute and whether it is present.
func (c Context) Attr(key string) (any, bool) {
	if c.Attributes == nil {
		return nil, false
	}
	value, ok := c.Attributes[key]
	return value, ok
}

// StringAttr returns the named attribute if it is present and a string.
func (c Context) StringAttr(key string) (string, bool) {
	value, ok := c.Attr(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// IntAttr returns the named attribute coerced to an int64. Whole floats
// (the usual shape of JSON-decoded numbers) coerce; anything else does not.
func (c Context) IntAttr(key string) (int64, bool) {
	value, ok := c.Attr(key)
	if !ok {
		return 0, false
	}
	return asInt64(value)
}
