package ports

// SchemaRegistry manages JSON schemas generated from Go types.
type SchemaRegistry interface {
	// Register adds a schema generated from a Go struct.
	Register(name string, model interface{}) error

	// GetSchema retrieves the JSON Schema registered under name.
	GetSchema(name string) (string, bool)

	// List returns all registered schema names.
	List() []string
}
