package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/ports"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates). Disable only for testing or hot-reloading.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

// Registry implements ports.SchemaRegistry.
type Registry struct {
	config  registryConfig
	schemas sync.Map // map[string]string (json schema)
}

// NewRegistry creates a new Registry with the given options. The policy
// document schema is always present.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Registry{config: cfg}
	r.schemas.Store(PolicySchemaName, policySchema)
	return r
}

var _ ports.SchemaRegistry = (*Registry)(nil)

// Register adds a schema generated from a Go struct.
func (r *Registry) Register(name string, model interface{}) error {
	data, err := GenerateSchema(model)
	if err != nil {
		return &domainerrors.SchemaError{Type: name, Err: err}
	}
	return r.RegisterRaw(name, string(data))
}

// RegisterRaw adds a schema given as a JSON document.
func (r *Registry) RegisterRaw(name, schemaJSON string) error {
	if name == "" {
		return &domainerrors.SchemaError{Err: fmt.Errorf("schema name cannot be empty")}
	}
	if !json.Valid([]byte(schemaJSON)) {
		return &domainerrors.SchemaError{Type: name, Err: fmt.Errorf("schema is not valid JSON")}
	}
	if r.config.strictMode {
		if _, loaded := r.schemas.LoadOrStore(name, schemaJSON); loaded {
			return &domainerrors.SchemaError{Type: name, Err: fmt.Errorf("schema %q already registered", name)}
		}
		return nil
	}
	r.schemas.Store(name, schemaJSON)
	return nil
}

// GetSchema retrieves the JSON Schema registered under name.
func (r *Registry) GetSchema(name string) (string, bool) {
	v, ok := r.schemas.Load(name)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// List returns all registered schema names, sorted.
func (r *Registry) List() []string {
	var keys []string
	r.schemas.Range(func(k, v interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
