package variantz

import "errors"

// Sentinel errors returned by registry and decode operations. Callers
// distinguish failure kinds with errors.Is; every error carries detail
// about the offending entity via wrapping.
var (
	// ErrMalformedFlagSpec reports a flag spec missing a usable name.
	ErrMalformedFlagSpec = errors.New("malformed flag spec")

	// ErrMalformedModSpec reports a mod spec missing a usable flag name.
	ErrMalformedModSpec = errors.New("malformed mod spec")

	// ErrMalformedVariantSpec reports a variant spec with a missing
	// identifier, an unrecognized operator, or structurally invalid
	// conditions.
	ErrMalformedVariantSpec = errors.New("malformed variant spec")

	// ErrUnknownConditionType reports a condition referencing a type
	// identifier no factory was registered for.
	ErrUnknownConditionType = errors.New("unknown condition type")

	// ErrUnknownFlag reports resolution of a flag name that was never
	// registered.
	ErrUnknownFlag = errors.New("unknown flag")

	// ErrDuplicateFlag reports registration of a flag name already held
	// by the registry.
	ErrDuplicateFlag = errors.New("duplicate flag")

	// ErrDuplicateVariant reports registration of a variant identifier
	// already held by the registry.
	ErrDuplicateVariant = errors.New("duplicate variant")
)
