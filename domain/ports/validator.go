package ports

// DocumentValidator checks a generic document against a structural schema
// before it is interpreted.
type DocumentValidator interface {
	Validate(doc map[string]any) error
}
