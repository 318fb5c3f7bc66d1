// Package validate checks JSON documents against JSON Schema definitions.
// Compiled schemas are cached by name.
package validate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names a JSON Schema definition.
type Schema struct {
	// Name identifies the schema in the cache. Kebab-case, e.g. "formation".
	Name string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Error reports a document that failed to parse or validate.
type Error struct {
	Schema  string
	Content json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("document does not match schema %q: %v", e.Schema, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// JSON validates raw JSON against the given Schema.
// Returns nil if no schema is provided or validation passes.
// Returns *Error on failure.
func JSON(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &Error{
			Schema:  schema.Name,
			Content: raw,
			Err:     fmt.Errorf("invalid JSON: %w", err),
		}
	}

	compiled, err := compiled(schema)
	if err != nil {
		return &Error{
			Schema:  schema.Name,
			Content: raw,
			Err:     fmt.Errorf("compile schema: %w", err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &Error{
			Schema:  schema.Name,
			Content: raw,
			Err:     err,
		}
	}
	return nil
}

// compiled returns a cached compiled schema or compiles and caches it.
func compiled(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not raw bytes.
	// Marshal then unmarshal to get a clean any representation.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, s)
	return s, nil
}
