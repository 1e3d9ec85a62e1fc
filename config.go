package variantz

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// configPayload is the wire shape of a configuration document:
//
//	{
//	  "flags":    [ {"name", "description", "baseValue"}, ... ],
//	  "variants": [ {"identifier", "op", "conditions", "mods"}, ... ]
//	}
//
// Flags are decoded from untyped maps so structural failures surface as
// malformed-spec errors rather than decoder type errors.
type configPayload struct {
	Flags    []map[string]any `json:"flags" yaml:"flags"`
	Variants []variantSpec    `json:"variants" yaml:"variants"`
}

// LoadJSON decodes a JSON payload and registers its flags and variants.
// The load is atomic: on any decode or validation failure nothing from
// the payload is retained.
func (r *Registry) LoadJSON(data []byte) error {
	var payload configPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode config JSON: %w", err)
	}
	return r.load(payload, false)
}

// LoadYAML decodes a YAML payload with the same tree shape and guarantees
// as LoadJSON.
func (r *Registry) LoadYAML(data []byte) error {
	var payload configPayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode config YAML: %w", err)
	}
	return r.load(payload, false)
}

// LoadConfig reads a configuration file and loads it, picking the decoder
// from the file extension (.yaml/.yml, otherwise JSON).
func (r *Registry) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if isYAMLPath(path) {
		return r.LoadYAML(data)
	}
	return r.LoadJSON(data)
}

// ReloadJSON merges a JSON payload over the current state: flags and
// variants named in the payload replace existing registrations in place,
// everything else is left alone. Atomic like LoadJSON.
func (r *Registry) ReloadJSON(data []byte) error {
	var payload configPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode config JSON: %w", err)
	}
	return r.load(payload, true)
}

// ReloadYAML is ReloadJSON for YAML payloads.
func (r *Registry) ReloadYAML(data []byte) error {
	var payload configPayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode config YAML: %w", err)
	}
	return r.load(payload, true)
}

// ReloadConfig reads a configuration file and merges it over the current
// state, picking the decoder from the file extension.
func (r *Registry) ReloadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if isYAMLPath(path) {
		return r.ReloadYAML(data)
	}
	return r.ReloadJSON(data)
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// load validates the complete payload into staged flags and variants, then
// commits under the write lock. Holding the lock across validation also
// serializes concurrent loads against each other.
func (r *Registry) load(payload configPayload, merge bool) error {
	staged := make([]Flag, 0, len(payload.Flags))
	for _, spec := range payload.Flags {
		f, err := FlagFromSpec(spec)
		if err != nil {
			return err
		}
		staged = append(staged, f)
	}

	stagedVariants := make([]Variant, 0, len(payload.Variants))
	for _, spec := range payload.Variants {
		v, err := r.buildVariant(spec)
		if err != nil {
			return err
		}
		stagedVariants = append(stagedVariants, v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate-then-commit: duplicate checks against both the registry
	// and the payload itself happen before anything is applied.
	seenFlags := make(map[string]struct{}, len(staged))
	for _, f := range staged {
		if _, dup := seenFlags[f.Name]; dup {
			return fmt.Errorf("%w: %q appears twice in payload", ErrDuplicateFlag, f.Name)
		}
		seenFlags[f.Name] = struct{}{}
		if !merge {
			if _, present := r.flags[f.Name]; present {
				return fmt.Errorf("%w: %q", ErrDuplicateFlag, f.Name)
			}
		}
	}
	seenVariants := make(map[string]struct{}, len(stagedVariants))
	for i := range stagedVariants {
		id := stagedVariants[i].identifier
		if _, dup := seenVariants[id]; dup {
			return fmt.Errorf("%w: %q appears twice in payload", ErrDuplicateVariant, id)
		}
		seenVariants[id] = struct{}{}
		if !merge && r.findVariantLocked(id) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateVariant, id)
		}
	}

	for _, f := range staged {
		if _, present := r.flags[f.Name]; present {
			r.flags[f.Name] = f // merge: replace in place, keep order
			continue
		}
		r.flags[f.Name] = f
		r.order = append(r.order, f.Name)
	}
	for i := range stagedVariants {
		v := stagedVariants[i]
		if at := r.findVariantLocked(v.identifier); at >= 0 {
			r.variants[at] = v // merge: keep priority position
			continue
		}
		r.variants = append(r.variants, v)
	}
	return nil
}

// encodedPayload mirrors configPayload on the encode side.
type encodedPayload struct {
	Flags    []Flag           `json:"flags"`
	Variants []map[string]any `json:"variants"`
}

// EncodeJSON serializes the registry's flags and variants back into the
// payload shape accepted by LoadJSON. Variants built with NewVariant have
// no serialized condition forms and encode with empty conditions.
func (r *Registry) EncodeJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := encodedPayload{
		Flags:    make([]Flag, 0, len(r.order)),
		Variants: make([]map[string]any, 0, len(r.variants)),
	}
	for _, name := range r.order {
		out.Flags = append(out.Flags, r.flags[name])
	}
	for i := range r.variants {
		v := &r.variants[i]
		conditions := make([]map[string]any, 0, len(v.specs))
		for _, spec := range v.specs {
			entry := make(map[string]any, len(spec.Params)+1)
			entry["type"] = spec.Type
			for key, value := range spec.Params {
				entry[key] = value
			}
			conditions = append(conditions, entry)
		}
		out.Variants = append(out.Variants, map[string]any{
			"identifier": v.identifier,
			"op":         string(v.op),
			"conditions": conditions,
			"mods":       v.mods,
		})
	}
	return json.Marshal(out)
}
