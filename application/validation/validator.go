// Package validation checks generic documents against JSON Schemas before
// they are interpreted.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/drses/frozen-realms-shim/application/schema"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/ports"
)

// SchemaValidator implements ports.DocumentValidator with a compiled JSON
// Schema.
type SchemaValidator struct {
	name   string
	schema *jsonschema.Schema
}

var _ ports.DocumentValidator = (*SchemaValidator)(nil)

// NewSchemaValidator compiles schemaJSON under name.
func NewSchemaValidator(name, schemaJSON string) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schemaJSON)); err != nil {
		return nil, &domainerrors.SchemaError{Type: name, Err: fmt.Errorf("failed to add schema resource: %w", err)}
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		return nil, &domainerrors.SchemaError{Type: name, Err: fmt.Errorf("invalid schema: %w", err)}
	}
	return &SchemaValidator{name: name, schema: sch}, nil
}

// FromRegistry compiles the schema registered under name.
func FromRegistry(reg ports.SchemaRegistry, name string) (*SchemaValidator, error) {
	s, ok := reg.GetSchema(name)
	if !ok {
		return nil, &domainerrors.SchemaError{Type: name, Err: fmt.Errorf("no schema registered for %s", name)}
	}
	return NewSchemaValidator(name, s)
}

// NewPolicyValidator returns a validator for policy documents.
func NewPolicyValidator() (*SchemaValidator, error) {
	return NewSchemaValidator(schema.PolicySchemaName, schema.PolicySchema())
}

// Validate checks doc against the schema.
func (v *SchemaValidator) Validate(doc map[string]any) error {
	// Normalize through JSON so YAML-decoded numbers and nested maps match
	// what the schema library expects.
	b, err := json.Marshal(doc)
	if err != nil {
		return &domainerrors.SchemaError{Type: v.name, Err: fmt.Errorf("failed to prepare validation object: %w", err)}
	}
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return &domainerrors.SchemaError{Type: v.name, Err: fmt.Errorf("failed to prepare validation object: %w", err)}
	}

	if err := v.schema.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &domainerrors.SchemaError{Type: v.name, Err: fmt.Errorf("%s", deepestCause(ve))}
		}
		return &domainerrors.SchemaError{Type: v.name, Err: err}
	}
	return nil
}

// deepestCause picks the failure reported furthest into the document,
// which names the offending entry rather than the record holding it.
func deepestCause(ve *jsonschema.ValidationError) string {
	best := ve
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			if len(e.InstanceLocation) > len(best.InstanceLocation) {
				best = e
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	loc := best.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, best.Message)
}
