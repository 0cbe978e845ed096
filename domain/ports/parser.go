package ports

// DocumentParser decodes a policy or configuration document into its
// generic form: maps with string keys, slices, strings, bools and numbers.
type DocumentParser interface {
	Parse(data []byte) (map[string]any, error)

	// Format names the accepted syntax, e.g. "yaml" or "jsonc".
	Format() string
}
