// Package schemavalidate validates an AgentRecord's opaque Configuration
// blob against a per-kind JSON Schema, grounded on the pack's plugin SDK
// config validator (pluginsdk.ValidateConfig) — same compile-and-cache
// shape, retargeted from a plugin manifest's schema to an agent kind's
// schema.
package schemavalidate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles and caches one JSON Schema per agent kind.
type Validator struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func New() *Validator {
	return &Validator{schemas: make(map[string]*jsonschema.Schema)}
}

// RegisterSchema compiles and stores the schema for a given agent kind.
// Call once at startup per kind that requires configuration validation;
// kinds with no registered schema are accepted unconditionally.
func (v *Validator) RegisterSchema(kind string, schema []byte) error {
	compiled, err := jsonschema.CompileString(kind+".schema.json", string(schema))
	if err != nil {
		return fmt.Errorf("compile schema for kind %q: %w", kind, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[kind] = compiled
	return nil
}

// Validate checks configuration against the schema registered for kind.
// A kind with no registered schema always passes.
func (v *Validator) Validate(kind string, configuration map[string]any) error {
	v.mu.Lock()
	schema, ok := v.schemas[kind]
	v.mu.Unlock()
	if !ok {
		return nil
	}

	payload, err := json.Marshal(configuration)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode configuration: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("configuration invalid for kind %q: %w", kind, err)
	}
	return nil
}
